package httpd

import (
	"github.com/apcore/portal"
)

const defaultContentType = "text/html; charset=utf-8"

const notFoundBody = "<html><body><h1>404 - Page not found</h1></body></html>"

// Resolver maps the leading bytes of a request to a response. It must
// be a pure function: same request, same response, and it never blocks.
type Resolver func(request string) *Response

type route struct {
	prefix string
	page   portal.Page
}

// RouteTable resolves requests by matching the request line against an
// ordered prefix list built from the configured pages. The index page
// answers both "GET / " and "GET /index"; anything unmatched gets the
// 404 page.
type RouteTable struct {
	routes []route
}

func NewRouteTable(pages []portal.Page) *RouteTable {
	table := &RouteTable{}
	for _, page := range pages {
		if page.ContentType == "" {
			page.ContentType = defaultContentType
		}
		if page.Path == "/" {
			table.routes = append(table.routes,
				route{prefix: "GET / ", page: page},
				route{prefix: "GET /index", page: page})
			continue
		}
		table.routes = append(table.routes, route{prefix: "GET " + page.Path, page: page})
	}
	return table
}

// Resolve implements the Resolver contract.
func (t *RouteTable) Resolve(request string) *Response {
	for _, r := range t.routes {
		if len(request) >= len(r.prefix) && request[:len(r.prefix)] == r.prefix {
			response := NewResponse(200, "OK")
			response.AddHeader("Content-Type", "%s", r.page.ContentType)
			response.Body = []byte(r.page.Body)
			return response
		}
	}
	response := NewResponse(404, "Not Found")
	response.AddHeader("Content-Type", "%s", defaultContentType)
	response.Body = []byte(notFoundBody)
	return response
}
