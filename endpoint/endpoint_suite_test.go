package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/crmkit/crm-data-apis/graphql"
	"github.com/crmkit/crm-data-apis/internal/testutil"
	. "github.com/crmkit/crm-data-apis/internal/testutil/rest"
	v1 "github.com/crmkit/crm-data-apis/rest/endpoint/v1"
	"github.com/crmkit/crm-data-apis/rest/models"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

type ruleBody struct {
	rules.Rule
	Description string `json:"description"`
}

type graphQLResponse struct {
	Data   map[string]interface{}   `json:"data"`
	Errors []map[string]interface{} `json:"errors"`
}

func executeGraphQL(routes []types.Route, query string) graphQLResponse {
	var post http.Handler
	for _, route := range routes {
		if route.Method == http.MethodPost {
			post = route.Handler
		}
	}
	Expect(post).NotTo(BeNil())

	body, err := json.Marshal(graphql.RequestBody{Query: query})
	Expect(err).NotTo(HaveOccurred())
	w := httptest.NewRecorder()
	post.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	Expect(w.Code).To(Equal(http.StatusOK))

	var resp graphQLResponse
	Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
	return resp
}

var _ = Describe("CrmEndpoint", func() {
	var (
		dir        string
		endpoint   *CrmEndpoint
		restRoutes []types.Route
		gqlRoutes  []types.Route
	)

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "crm-endpoint")
		Expect(err).NotTo(HaveOccurred())
		seedFile := filepath.Join(dir, "seed.yaml")
		Expect(ioutil.WriteFile(seedFile, []byte(leadsSeed), 0644)).To(Succeed())

		cfg := NewEndpointConfigWithLogger(testutil.TestLogger()).
			WithSeedFile(seedFile).
			WithRulesFile(filepath.Join(dir, "rules.json"))
		endpoint, err = cfg.NewEndpoint(context.Background())
		Expect(err).NotTo(HaveOccurred())

		restRoutes = endpoint.RoutesRest(Prefix)
		gqlRoutes, err = endpoint.RoutesGraphQL("/graphql")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		endpoint.Close()
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	Describe("RoutesRest()", func() {
		It("Should filter the leads", func() {
			var rows models.Rows
			code := ExecutePost(restRoutes, v1.RecordsQueryPathFormat, `{"filters": [
				{"field": "status", "operator": "equals", "value": "qualified"},
				{"field": "industry", "operator": "equals", "value": "tech"},
				{"field": "score", "operator": "greater_than", "value": 70}
			]}`, &rows, "leads")
			Expect(code).To(Equal(http.StatusOK))
			Expect(rows.Count).To(Equal(1))
			Expect(rows.Rows[0]["name"]).To(Equal("Acme"))
		})

		It("Should build, save and apply a rule", func() {
			var rule ruleBody
			code := ExecutePost(restRoutes, v1.RulesPathFormat, `{"name": "Hot tech leads", "entity": "leads"}`, &rule)
			Expect(code).To(Equal(http.StatusCreated))
			Expect(rule.State).To(Equal(rules.Draft))
			id := rule.ID

			for _, condition := range []string{
				`{"kind": "field", "field": "status", "operator": "equals", "value": "qualified"}`,
				`{"kind": "field", "field": "score", "operator": "greater_than", "value": 70}`,
			} {
				Expect(ExecutePost(restRoutes, v1.ConditionsPathFormat, condition, &rule, id)).To(Equal(http.StatusOK))
			}
			Expect(ExecutePost(restRoutes, v1.ActionsPathFormat, `{"kind": "add_tag", "tag": "hot"}`, &rule, id)).
				To(Equal(http.StatusOK))
			Expect(ExecutePost(restRoutes, v1.RuleSavePathFormat, ``, &rule, id)).To(Equal(http.StatusOK))
			Expect(rule.State).To(Equal(rules.Saved))
			Expect(rule.Description).To(Equal(`when status equals "qualified" AND score is greater than 70 then tag "hot"`))

			var outcome store.ApplyOutcome
			code = ExecutePost(restRoutes, v1.RuleApplyPathFormat, `{"commit": true}`, &outcome, id)
			Expect(code).To(Equal(http.StatusOK))
			Expect(outcome.Matched).To(Equal(1))
			Expect(outcome.Updated).To(Equal(1))

			var rows models.Rows
			Expect(ExecuteGet(restRoutes, v1.RecordPathFormat, &rows, "leads", "1")).To(Equal(http.StatusOK))
			Expect(rows.Rows).To(HaveLen(1))
			Expect(rows.Rows[0]["tags"]).To(ConsistOf("vip", "hot"))

			Expect(filepath.Join(dir, "rules.json")).To(BeAnExistingFile())
		})
	})

	Describe("RoutesGraphQL()", func() {
		It("Should query the leads with filters", func() {
			resp := executeGraphQL(gqlRoutes, `{ leads(filters: [
				{field: "score", operator: LESS_THAN, value: 50},
				{field: "status", operator: EQUALS, value: "qualified", connector: OR}
			], orderBy: [SCORE_DESC]) { values { name score } count } }`)
			Expect(resp.Errors).To(BeEmpty())

			leads := resp.Data["leads"].(map[string]interface{})
			Expect(leads["count"]).To(BeEquivalentTo(2))
			Expect(leads["values"]).To(Equal([]interface{}{
				map[string]interface{}{"name": "Acme", "score": 85.0},
				map[string]interface{}{"name": "Globex", "score": 40.0},
			}))
		})

		It("Should see rules created through REST", func() {
			var rule ruleBody
			Expect(ExecutePost(restRoutes, v1.RulesPathFormat, `{"name": "Route new leads", "entity": "leads"}`, &rule)).
				To(Equal(http.StatusCreated))

			resp := executeGraphQL(gqlRoutes, `{ rules(entity: "leads") { id name state } }`)
			Expect(resp.Errors).To(BeEmpty())
			Expect(resp.Data["rules"]).To(ConsistOf(map[string]interface{}{
				"id": rule.ID, "name": "Route new leads", "state": "draft",
			}))
		})

		It("Should report unknown fields", func() {
			resp := executeGraphQL(gqlRoutes, `{ leads(filters: [{field: "revenue", operator: IS_EMPTY}]) { count } }`)
			Expect(resp.Errors).To(HaveLen(1))
		})
	})
})

func TestEndpoint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Endpoint Suite")
}
