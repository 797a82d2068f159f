package api

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
)

const maxPageSize = 100

// Page is the paginated list envelope {count, next, previous, results}.
type Page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// Paginator reads ?page=&limit= and builds absolute next/previous links.
type Paginator struct {
	BaseURL     string
	DefaultSize int
}

type pageRequest struct {
	Page  int
	Limit int
}

func (r pageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

func (p Paginator) parse(c *gin.Context) (pageRequest, error) {
	req := pageRequest{Page: 1, Limit: p.DefaultSize}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, middleware.BadRequest("invalid page")
		}
		req.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, middleware.BadRequest("invalid limit")
		}
		req.Limit = n
	}
	if req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}
	return req, nil
}

func (p Paginator) page(c *gin.Context, req pageRequest, total int64, results interface{}) Page {
	out := Page{Count: total, Results: results}
	if int64(req.Page*req.Limit) < total {
		out.Next = p.link(c, req.Page+1)
	}
	if req.Page > 1 {
		out.Previous = p.link(c, req.Page-1)
	}
	return out
}

func (p Paginator) link(c *gin.Context, page int) *string {
	query := c.Request.URL.Query()
	if page == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Path: c.Request.URL.Path, RawQuery: query.Encode()}
	link := p.BaseURL + u.String()
	return &link
}
