package eligibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evex-campus/backend/internal/models"
)

func TestCheck(t *testing.T) {
	host := uuid.New()
	other := uuid.New()
	third := uuid.New()

	tests := []struct {
		name           string
		visibility     models.EventVisibility
		allowed        []uuid.UUID
		userUniversity *uuid.UUID
		wantErr        error
	}{
		{"public anyone", models.VisibilityPublic, nil, nil, nil},
		{"public with university", models.VisibilityPublic, nil, &other, nil},
		{"university match", models.VisibilityUniversity, nil, &host, nil},
		{"university mismatch", models.VisibilityUniversity, nil, &other, ErrHostUniversityOnly},
		{"university no affiliation", models.VisibilityUniversity, nil, nil, ErrHostUniversityOnly},
		{"inter empty list is unrestricted", models.VisibilityInterUniversity, nil, &other, nil},
		{"inter empty list no affiliation", models.VisibilityInterUniversity, nil, nil, nil},
		{"inter allowed", models.VisibilityInterUniversity, []uuid.UUID{host, other}, &other, nil},
		{"inter not allowed", models.VisibilityInterUniversity, []uuid.UUID{host, third}, &other, ErrUniversityNotAllowed},
		{"inter no affiliation with list", models.VisibilityInterUniversity, []uuid.UUID{host}, nil, ErrUniversityNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.visibility, host, tt.allowed, tt.userUniversity)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
