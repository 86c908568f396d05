package testutil

import (
	"fmt"

	"github.com/google/uuid"
)

// RandomEmail returns a unique address so tests can share one database.
func RandomEmail() string {
	return fmt.Sprintf("user-%s@example.com", uuid.NewString()[:12])
}
