package config

import "strings"

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (s Server) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range s.v.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func (Server) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Server) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
