package notification

import (
	"strings"
	"testing"

	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

func TestSearchDefaultOrderClause(t *testing.T) {
	// A list request without sortBy must order by a real column name, not
	// the camelCase whitelist key.
	clause := pagination.Params{}.OrderClause(notifSortColumns, "createdAt")
	if clause != "ORDER BY created_at ASC" {
		t.Errorf("default clause = %q, want ORDER BY created_at ASC", clause)
	}

	for key, col := range notifSortColumns {
		clause := pagination.Params{SortBy: key}.OrderClause(notifSortColumns, "createdAt")
		if !strings.Contains(clause, col) {
			t.Errorf("sortBy=%q produced %q, want column %q", key, clause, col)
		}
	}
}
