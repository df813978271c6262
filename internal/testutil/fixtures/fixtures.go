// Package fixtures builds the sample CRM data shared by the endpoint tests.
package fixtures

import (
	"context"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/store"
	"github.com/crmkit/crm-data-apis/types"
)

func LeadsRegistry() *filter.Registry {
	return filter.MustRegistry("leads",
		filter.Field{Name: "id", Label: "ID"},
		filter.Field{Name: "name", Label: "Company", Searchable: true},
		filter.Field{Name: "status"},
		filter.Field{Name: "industry", Searchable: true},
		filter.Field{Name: "score", Type: filter.TypeNumber},
		filter.Field{Name: "email", Searchable: true},
		filter.Field{Name: "tags", Type: filter.TypeList},
		filter.Field{Name: "owner"},
		filter.Field{Name: "contacted", Type: filter.TypeBoolean},
		filter.Field{Name: "created_at", Type: filter.TypeDate},
	)
}

// Leads returns Acme, Globex and Initech. Only Acme is a qualified tech lead
// scoring above 70.
func Leads() []types.Record {
	return []types.Record{
		{"id": "1", "name": "Acme", "status": "qualified", "industry": "tech", "score": 85,
			"email": "sales@acme.io", "tags": []interface{}{"vip"}, "contacted": true, "created_at": "2024-01-15"},
		{"id": "2", "name": "Globex", "status": "new", "industry": "tech", "score": 40,
			"email": "info@globex.com", "tags": []interface{}{}, "contacted": false, "created_at": "2024-02-01"},
		{"id": "3", "name": "Initech", "status": "new", "industry": "software", "score": 62,
			"email": "bill@initech.com", "tags": []interface{}{"software"}, "contacted": false, "created_at": "2024-03-10"},
	}
}

func DealsRegistry() *filter.Registry {
	return filter.MustRegistry("deals",
		filter.Field{Name: "id"},
		filter.Field{Name: "title", Searchable: true},
		filter.Field{Name: "amount", Type: filter.TypeNumber},
		filter.Field{Name: "stage"},
	)
}

func Deals() []types.Record {
	return []types.Record{
		{"id": "d1", "title": "Acme renewal", "amount": 12000, "stage": "proposal"},
		{"id": "d2", "title": "Globex pilot", "amount": 3000, "stage": "won"},
	}
}

// Catalog builds in-memory leads and deals entities.
func Catalog() *store.Catalog {
	leads := store.NewMemoryRepository(LeadsRegistry())
	deals := store.NewMemoryRepository(DealsRegistry())
	ctx := context.Background()
	if err := leads.Load(ctx, Leads()); err != nil {
		panic(err)
	}
	if err := deals.Load(ctx, Deals()); err != nil {
		panic(err)
	}

	catalog, err := store.NewCatalog(
		&store.Entity{Registry: LeadsRegistry(), Repository: leads},
		&store.Entity{Registry: DealsRegistry(), Repository: deals},
	)
	if err != nil {
		panic(err)
	}
	return catalog
}

// HotTechLeads is a saved rule tagging qualified tech leads scoring above 70.
func HotTechLeads() rules.Rule {
	rule := rules.New("Hot tech leads", "leads")
	rule.ID = "hot-tech-leads"
	rule = must(rule.AddCondition(withID("c1", rules.FieldMatch("status", filter.Equals, "qualified"))))
	rule = must(rule.AddCondition(withID("c2", rules.FieldMatch("industry", filter.Equals, "tech"))))
	rule = must(rule.AddCondition(withID("c3", rules.FieldMatch("score", filter.GreaterThan, 70))))
	action := rules.AddTagged("hot")
	action.ID = "a1"
	rule = must(rule.AddAction(action))
	notify := rules.NotifyBy("email", "{{email}}", "Hi {{name}}, let's talk")
	notify.ID = "a2"
	rule = must(rule.AddAction(notify))
	return must(rule.Save(LeadsRegistry()))
}

// RuleStore holds HotTechLeads.
func RuleStore() *store.MemoryRuleStore {
	return store.NewMemoryRuleStore(HotTechLeads())
}

func withID(id string, c rules.Condition) rules.Condition {
	c.ID = id
	return c
}

func must(rule rules.Rule, err error) rules.Rule {
	if err != nil {
		panic(err)
	}
	return rule
}
