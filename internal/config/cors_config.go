package config

import "strings"

type Cors struct {
	Origins []string `yaml:"allowed_origins"`
	Methods string   `yaml:"allowed_methods"`
	Headers string   `yaml:"allowed_headers"`
}

var _ CorsConfig = Cors{}

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

func defaultCors() Cors {
	return Cors{
		Methods: "GET, POST, DELETE",
		Headers: "Content-Type, Authorization, X-Device-Id",
	}
}

func (c *Cors) applyEnv() {
	if v := GetEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.Origins = strings.Split(v, ",")
	}
}

func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := make(AllowedOrigins, len(c.Origins))
	for _, o := range c.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func (c Cors) GetAllowedMethods() string {
	return c.Methods
}

func (c Cors) GetAllowedHeaders() string {
	return c.Headers
}
