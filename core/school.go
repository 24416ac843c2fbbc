package core

import (
	"context"
	"fmt"
)

// maxSchoolIDAttempts bounds the sequential scan for a free school code.
const maxSchoolIDAttempts = 99999

// GenerateSchoolID returns the next free school code in the SCH001..SCH99999
// range, collision-checked against registered admins. School codes are short
// and human-readable on purpose: they are typed by users at login.
//
// The exists-then-claim sequence is not atomic: two registrations racing on
// the same candidate can both see it free, and there is no store-level
// constraint on a school's first admin to back it up. Callers that need the
// stronger guarantee must serialize registration or retry on collision.
func GenerateSchoolID(ctx context.Context, admins AdminStore) (SchoolID, error) {
	for n := 1; n <= maxSchoolIDAttempts; n++ {
		candidate := SchoolID(fmt.Sprintf("SCH%03d", n))
		taken, err := admins.SchoolExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("school id space exhausted: %w", ErrDuplicateSchool)
}
