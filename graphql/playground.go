package graphql

import (
	"html/template"
	"net/http"

	"github.com/crmkit/crm-data-apis/types"
)

const playgroundVersion = "1.7.20"

var playgroundTemplate = template.Must(template.New("playground").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset=utf-8/>
  <meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui">
  <title>CRM GraphQL Playground</title>
  <link rel="stylesheet" href="//cdn.jsdelivr.net/npm/graphql-playground-react@{{.Version}}/build/static/css/index.css" />
  <link rel="shortcut icon" href="//cdn.jsdelivr.net/npm/graphql-playground-react@{{.Version}}/build/favicon.png" />
  <script src="//cdn.jsdelivr.net/npm/graphql-playground-react@{{.Version}}/build/static/js/middleware.js"></script>
</head>
<body>
  <div id="root"></div>
  <script>window.addEventListener('load', function (event) {
      GraphQLPlayground.init(document.getElementById('root'), {
        endpoint: {{.Endpoint}},
        settings: {'request.credentials': 'same-origin'}
      })
    })</script>
</body>
</html>
`))

// PlaygroundRoute serves a GraphQL playground page querying the endpoint.
func PlaygroundRoute(pattern string, endpoint string) types.Route {
	return types.Route{
		Method:  http.MethodGet,
		Pattern: pattern,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			err := playgroundTemplate.Execute(w, struct {
				Version  string
				Endpoint string
			}{playgroundVersion, endpoint})
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}),
	}
}
