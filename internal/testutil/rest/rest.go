package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"reflect"
	"regexp"
	"strings"

	"github.com/julienschmidt/httprouter"
	. "github.com/onsi/gomega"

	"github.com/crmkit/crm-data-apis/auth"
	"github.com/crmkit/crm-data-apis/rest/models"
	"github.com/crmkit/crm-data-apis/types"
)

const Prefix = "/rest"

// User is set as the acting user of every request.
const User = "test-user"

func ExecuteGet(routes []types.Route, routeFormat string, responsePtr interface{}, values ...interface{}) int {
	return execute(http.MethodGet, routes, routeFormat, "", responsePtr, values...)
}

func ExecutePost(
	routes []types.Route,
	routeFormat string,
	requestBody string,
	responsePtr interface{},
	values ...interface{},
) int {
	return execute(http.MethodPost, routes, routeFormat, requestBody, responsePtr, values...)
}

func ExecutePut(
	routes []types.Route,
	routeFormat string,
	requestBody string,
	responsePtr interface{},
	values ...interface{},
) int {
	return execute(http.MethodPut, routes, routeFormat, requestBody, responsePtr, values...)
}

func ExecutePatch(
	routes []types.Route,
	routeFormat string,
	requestBody string,
	responsePtr interface{},
	values ...interface{},
) int {
	return execute(http.MethodPatch, routes, routeFormat, requestBody, responsePtr, values...)
}

func ExecuteDelete(
	routes []types.Route,
	routeFormat string,
	values ...interface{},
) int {
	return execute(http.MethodDelete, routes, routeFormat, "", nil, values...)
}

// ExecuteRaw performs the request and returns the recorder without decoding
// the body, for non JSON responses.
func ExecuteRaw(
	method string,
	routes []types.Route,
	routeFormat string,
	body io.Reader,
	values ...interface{},
) *httptest.ResponseRecorder {
	targetPath := path.Join(Prefix, fmt.Sprintf(routeFormat, values...))
	r := httptest.NewRequest(method, targetPath, body)
	r = r.WithContext(auth.WithContextUser(r.Context(), User))

	w := httptest.NewRecorder()
	route := lookupRoute(routes, method, routeFormat)

	// Use default router for params to be populated
	router := httprouter.New()
	router.Handler(method, route.Pattern, route.Handler)
	router.ServeHTTP(w, r)
	return w
}

func execute(
	method string,
	routes []types.Route,
	routeFormat string,
	requestBody string,
	responsePtr interface{},
	values ...interface{},
) int {
	rv := reflect.ValueOf(responsePtr)
	if responsePtr != nil && rv.Kind() != reflect.Ptr {
		panic("Provided value should be a pointer or nil")
	}

	var body io.Reader
	if requestBody != "" {
		body = bytes.NewBufferString(requestBody)
	}

	w := ExecuteRaw(method, routes, routeFormat, body, values...)

	if w.Code < http.StatusOK || w.Code > http.StatusIMUsed {
		// Not in the 2xx range
		if responsePtr == nil {
			return w.Code
		}
		_, ok := responsePtr.(*models.ModelError)
		if !ok {
			panic(fmt.Sprintf("unexpected http error %d: %s", w.Code, w.Body))
		}
	}

	if w.Code != http.StatusNoContent && responsePtr != nil {
		bodyString := w.Body.String()
		err := json.NewDecoder(bytes.NewBufferString(bodyString)).Decode(responsePtr)
		Expect(err).ToNot(HaveOccurred(),
			fmt.Sprintf("Error decoding response with code %d and body: %s", w.Code, bodyString))
	}

	return w.Code
}

func lookupRoute(routes []types.Route, method, format string) types.Route {
	if i := strings.Index(format, "?"); i >= 0 {
		format = format[:i]
	}
	// Word tokens for parameters
	regexStr := strings.Replace(regexp.QuoteMeta(format), `%s`, `:\w+`, -1)
	// End of the string
	regexStr += `$`

	re := regexp.MustCompile(regexStr)
	for _, route := range routes {
		if re.MatchString(route.Pattern) && route.Method == method {
			return route
		}
	}

	panic(fmt.Sprintf("Route not found: %s %s", method, format))
}
