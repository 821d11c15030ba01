package graph

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/woedy/ProxyHome/internal/api/dto"
	"github.com/woedy/ProxyHome/internal/database"
)

// Field names follow the REST API's snake_case JSON so both read surfaces
// speak the same dialect.
var jobLogType = graphql.NewObject(graphql.ObjectConfig{
	Name: "JobLogLine",
	Fields: graphql.Fields{
		"level":      &graphql.Field{Type: graphql.String},
		"message":    &graphql.Field{Type: graphql.String},
		"created_at": &graphql.Field{Type: graphql.DateTime},
	},
})

var jobType = graphql.NewObject(graphql.ObjectConfig{
	Name: "FetchJob",
	Fields: graphql.Fields{
		"id":                 &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"job_type":           &graphql.Field{Type: graphql.String},
		"status":             &graphql.Field{Type: graphql.String},
		"validate":           &graphql.Field{Type: graphql.Boolean},
		"timeout_seconds":    &graphql.Field{Type: graphql.Int},
		"max_workers":        &graphql.Field{Type: graphql.Int},
		"proxies_found":      &graphql.Field{Type: graphql.Int},
		"proxies_working":    &graphql.Field{Type: graphql.Int},
		"sources_tried":      &graphql.Field{Type: graphql.Int},
		"sources_successful": &graphql.Field{Type: graphql.Int},
		"error":              &graphql.Field{Type: graphql.String},
		"started_at":         &graphql.Field{Type: graphql.DateTime},
		"completed_at":       &graphql.Field{Type: graphql.DateTime},
		"created_at":         &graphql.Field{Type: graphql.DateTime},
		"logs": &graphql.Field{
			Type:    graphql.NewList(graphql.NewNonNull(jobLogType)),
			Resolve: resolveJobLogs,
		},
	},
})

var proxyType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Proxy",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"address":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"port":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"protocol":      &graphql.Field{Type: graphql.String},
		"tier":          &graphql.Field{Type: graphql.Int},
		"premium":       &graphql.Field{Type: graphql.Boolean},
		"country":       &graphql.Field{Type: graphql.String},
		"country_code":  &graphql.Field{Type: graphql.String},
		"region":        &graphql.Field{Type: graphql.String},
		"city":          &graphql.Field{Type: graphql.String},
		"timezone":      &graphql.Field{Type: graphql.String},
		"is_working":    &graphql.Field{Type: graphql.Boolean},
		"response_time": &graphql.Field{Type: graphql.Float},
		"success_rate":  &graphql.Field{Type: graphql.Float},
		"success_count": &graphql.Field{Type: graphql.Int},
		"failure_count": &graphql.Field{Type: graphql.Int},
		"last_checked":  &graphql.Field{Type: graphql.DateTime},
		"created_at":    &graphql.Field{Type: graphql.DateTime},
	},
})

var sourceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Source",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"tier":      &graphql.Field{Type: graphql.Int},
		"url":       &graphql.Field{Type: graphql.String},
		"is_active": &graphql.Field{Type: graphql.Boolean},
		"proxies":   &graphql.Field{Type: graphql.Int},
	},
})

// NewSchema builds the read-only query schema over the proxy pool.
func NewSchema() (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"proxies": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(proxyType)),
				Args: graphql.FieldConfigArgument{
					"protocol":     &graphql.ArgumentConfig{Type: graphql.String},
					"country_code": &graphql.ArgumentConfig{Type: graphql.String},
					"tier":         &graphql.ArgumentConfig{Type: graphql.Int},
					"working":      &graphql.ArgumentConfig{Type: graphql.Boolean},
					"premium":      &graphql.ArgumentConfig{Type: graphql.Boolean},
					"page":         &graphql.ArgumentConfig{Type: graphql.Int},
					"page_size":    &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: resolveProxies,
			},
			"proxy": &graphql.Field{
				Type: proxyType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: resolveProxy,
			},
			"jobs": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(jobType)),
				Args: graphql.FieldConfigArgument{
					"status": &graphql.ArgumentConfig{Type: graphql.String},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: resolveJobs,
			},
			"job": &graphql.Field{
				Type: jobType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: resolveJob,
			},
			"sources": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(sourceType)),
				Resolve: resolveSources,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// NewHandler wraps the schema for mounting under POST /graphql.
func NewHandler() (http.Handler, error) {
	schema, err := NewSchema()
	if err != nil {
		return nil, err
	}
	return handler.New(&handler.Config{
		Schema: &schema,
		Pretty: true,
	}), nil
}

func resolveProxies(p graphql.ResolveParams) (interface{}, error) {
	filters := dto.ProxyListFilters{}
	if protocol, ok := p.Args["protocol"].(string); ok {
		filters.Protocol = protocol
	}
	if code, ok := p.Args["country_code"].(string); ok {
		filters.CountryCode = code
	}
	if tier, ok := p.Args["tier"].(int); ok {
		filters.Tier = uint8(tier)
	}
	if working, ok := p.Args["working"].(bool); ok {
		filters.Working = &working
	}
	if premium, ok := p.Args["premium"].(bool); ok {
		filters.Premium = &premium
	}
	if page, ok := p.Args["page"].(int); ok {
		filters.Page = page
	}
	if size, ok := p.Args["page_size"].(int); ok {
		filters.PageSize = size
	}

	proxies, _, err := database.ListProxies(filters)
	if err != nil {
		return nil, err
	}
	return dto.ProxyInfosFrom(proxies), nil
}

func resolveProxy(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p, "id")
	if err != nil {
		return nil, err
	}

	proxy, err := database.GetProxyByID(id)
	if errors.Is(err, database.ErrProxyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dto.ProxyInfoFrom(proxy), nil
}

func resolveJobs(p graphql.ResolveParams) (interface{}, error) {
	status, _ := p.Args["status"].(string)
	limit, _ := p.Args["limit"].(int)

	jobs, err := database.ListFetchJobs(status, limit)
	if err != nil {
		return nil, err
	}
	return dto.FetchJobInfosFrom(jobs), nil
}

func resolveJob(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p, "id")
	if err != nil {
		return nil, err
	}

	job, err := database.GetFetchJob(id)
	if errors.Is(err, database.ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dto.FetchJobInfoFrom(job), nil
}

func resolveJobLogs(p graphql.ResolveParams) (interface{}, error) {
	job, ok := p.Source.(dto.FetchJobInfo)
	if !ok {
		return nil, nil
	}

	logs, err := database.GetJobLogs(job.Id, 0)
	if err != nil {
		return nil, err
	}
	return dto.JobLogLinesFrom(logs), nil
}

func resolveSources(graphql.ResolveParams) (interface{}, error) {
	sources, err := database.ListSources()
	if err != nil {
		return nil, err
	}
	counts, err := database.CountProxiesBySource()
	if err != nil {
		return nil, err
	}
	return dto.SourceInfosFrom(sources, counts), nil
}

func idArg(p graphql.ResolveParams, name string) (uint64, error) {
	raw, _ := p.Args[name].(string)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
