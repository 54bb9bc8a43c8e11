package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContextDefaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", p.Limit, DefaultLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0", p.Offset)
	}
	if p.SortOrder != "asc" {
		t.Errorf("sortOrder = %q, want asc", p.SortOrder)
	}
}

func TestFromContextClampsLimit(t *testing.T) {
	p := paramsFor(t, "limit=5000")
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", p.Limit, MaxLimit)
	}
}

func TestFromContextPageWinsOverOffset(t *testing.T) {
	p := paramsFor(t, "page=3&limit=10&offset=99")
	if p.Offset != 20 {
		t.Errorf("offset = %d, want 20", p.Offset)
	}
	if p.Page() != 3 {
		t.Errorf("page = %d, want 3", p.Page())
	}
}

func TestOrderClauseWhitelist(t *testing.T) {
	allowed := map[string]string{"name": "name", "createdAt": "created_at"}

	p := Params{SortBy: "createdAt", SortOrder: "desc"}
	if got := p.OrderClause(allowed, "createdAt"); got != "ORDER BY created_at DESC" {
		t.Errorf("clause = %q", got)
	}

	// Unknown columns fall back instead of reaching the SQL
	p = Params{SortBy: "name; DROP TABLE patients", SortOrder: "asc"}
	if got := p.OrderClause(allowed, "createdAt"); got != "ORDER BY created_at ASC" {
		t.Errorf("clause = %q, want fallback", got)
	}
}

func TestOrderClauseFallbackResolvesColumn(t *testing.T) {
	// The fallback is a whitelist key, not raw SQL: a request without
	// sortBy must still produce the mapped column name.
	allowed := map[string]string{"startsAt": "starts_at", "createdAt": "created_at"}

	p := Params{}
	if got := p.OrderClause(allowed, "startsAt"); got != "ORDER BY starts_at ASC" {
		t.Errorf("clause = %q, want ORDER BY starts_at ASC", got)
	}
}

func TestNewResponseHasMore(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	resp := NewResponse(nil, 25, p)
	if !resp.HasMore {
		t.Error("expected has_more = true")
	}
	if resp.Page != 1 {
		t.Errorf("page = %d, want 1", resp.Page)
	}

	p = Params{Limit: 10, Offset: 20}
	resp = NewResponse(nil, 25, p)
	if resp.HasMore {
		t.Error("expected has_more = false on last page")
	}
	if resp.Page != 3 {
		t.Errorf("page = %d, want 3", resp.Page)
	}
}
