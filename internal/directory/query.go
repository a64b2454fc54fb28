// internal/directory/query.go
//
// Filtered, paged network listing used by the REST collection endpoint
// and `wpmn list`.
package directory

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Query narrows a network listing.  Zero values mean "no filter".
type Query struct {
	Search  string  // substring of domain or path
	Domain  string  // exact domain
	Path    string  // exact path
	Include []int64 // only these ids
	Exclude []int64 // never these ids
	Page    int     // 1-based; ignored when PerPage is 0
	PerPage int     // 0 returns every row
	OrderBy string  // id, domain, or path
	Order   string  // asc or desc
}

var orderColumns = map[string]string{
	"id":     "id",
	"domain": "domain",
	"path":   "path",
}

// where builds the WHERE clause and its arguments.
func (q Query) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Search != "" {
		like := "%" + escapeLike(q.Search) + "%"
		conds = append(conds, `(domain LIKE ? ESCAPE '!' OR path LIKE ? ESCAPE '!')`)
		args = append(args, like, like)
	}
	if q.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, q.Domain)
	}
	if q.Path != "" {
		conds = append(conds, "path = ?")
		args = append(args, q.Path)
	}
	if len(q.Include) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(q.Include))+")")
		for _, id := range q.Include {
			args = append(args, id)
		}
	}
	if len(q.Exclude) > 0 {
		conds = append(conds, "id NOT IN ("+placeholders(len(q.Exclude))+")")
		for _, id := range q.Exclude {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Networks returns the page of networks matching q.
func (s *Store) Networks(ctx context.Context, q Query) ([]Network, error) {
	where, args := q.where()

	col, ok := orderColumns[strings.ToLower(q.OrderBy)]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		dir = "DESC"
	}

	sqlText := `SELECT id, domain, path FROM ` + s.table("site") + where +
		` ORDER BY ` + col + ` ` + dir
	if q.PerPage > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		sqlText += ` LIMIT ? OFFSET ?`
		args = append(args, q.PerPage, (page-1)*q.PerPage)
	}

	out := make([]Network, 0, 8)
	if err := sqlx.SelectContext(ctx, s.q, &out, sqlText, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// CountNetworks counts networks matching q, ignoring paging.
func (s *Store) CountNetworks(ctx context.Context, q Query) (int64, error) {
	where, args := q.where()
	var n int64
	err := sqlx.GetContext(ctx, s.q, &n, `SELECT COUNT(*) FROM `+s.table("site")+where, args...)
	return n, err
}

// placeholders returns "?,?,…" with n marks.
func placeholders(n int) string {
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}
