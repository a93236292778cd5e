package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ironladytech/onboarding/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads ?ordering=field,-other; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPagination reads ?page=&page_size=; bad values fall back to the defaults.
func bindPagination(ctx echo.Context) core.Pagination {
	var p core.Pagination
	p.Page, _ = strconv.Atoi(ctx.QueryParam("page"))
	p.PageSize, _ = strconv.Atoi(ctx.QueryParam("page_size"))
	p.Clean()
	return p
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(name, "must be true or false")
	}
	return &b, nil
}

func queryTime(ctx echo.Context, name string) (*time.Time, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, core.NewFieldError(name, "must be an RFC 3339 date-time")
	}
	return &t, nil
}

func queryDate(ctx echo.Context, name string) (*core.Date, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	d, err := core.ParseDate(val)
	if err != nil {
		return nil, core.NewFieldError(name, "must be a YYYY-MM-DD date")
	}
	return &d, nil
}

// queryList accepts both repeated (?x=a&x=b) and comma separated (?x=a,b) values.
func queryList(ctx echo.Context, name string) []string {
	var out []string
	for _, v := range ctx.QueryParams()[name] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
