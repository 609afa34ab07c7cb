package services_test

import (
	"testing"

	"github.com/localrally/petitiond/internal/services"
	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

func TestParseListRequestDefaults(t *testing.T) {
	req, err := services.ParseListRequest(services.ListParams{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Query.Sort != store.SortCreatedAsc {
		t.Errorf("Expected default sort CREATED_ASC, got %s", req.Query.Sort)
	}
	if req.StartIndex != 0 || req.Count != nil {
		t.Errorf("Expected zero start index and unbounded count")
	}
	if req.Query.Q != nil || req.Query.OwnerID != nil || req.Query.MaxTierCost != nil || req.Query.SupporterID != nil {
		t.Errorf("Expected absent filters to stay nil")
	}
}

func TestParseListRequestTrimsQuery(t *testing.T) {
	req, err := services.ParseListRequest(services.ListParams{Q: strPtr(`  "whales"  `)})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Query.Q == nil || *req.Query.Q != "whales" {
		t.Errorf("Expected quotes and whitespace stripped, got %v", req.Query.Q)
	}
}

func TestParseListRequestRejectsEmptyQuery(t *testing.T) {
	_, err := services.ParseListRequest(services.ListParams{Q: strPtr("   ")})
	if !types.IsKind(err, types.InvalidRequest) {
		t.Fatalf("Expected InvalidRequest, got %v", err)
	}
}

func TestParseListRequestCategoryIDs(t *testing.T) {
	req, err := services.ParseListRequest(services.ListParams{CategoryIDs: []string{"1", " 3 "}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(req.Query.CategoryIDs) != 2 || req.Query.CategoryIDs[0] != 1 || req.Query.CategoryIDs[1] != 3 {
		t.Errorf("Expected [1 3], got %v", req.Query.CategoryIDs)
	}

	_, err = services.ParseListRequest(services.ListParams{CategoryIDs: []string{"1", "pets"}})
	if !types.IsKind(err, types.InvalidRequest) {
		t.Fatalf("Expected InvalidRequest for non-integer category id, got %v", err)
	}
}

func TestParseListRequestRejectsBadNumbers(t *testing.T) {
	cases := map[string]services.ListParams{
		"ownerId":                 {OwnerID: strPtr("abc")},
		"supporterId":             {SupporterID: strPtr("1.5")},
		"supportingCost":          {SupportingCost: strPtr("cheap")},
		"negative supportingCost": {SupportingCost: strPtr("-1")},
		"startIndex":              {StartIndex: strPtr("-2")},
		"count":                   {Count: strPtr("-1")},
		"sortBy":                  {SortBy: strPtr("NEWEST")},
	}
	for name, params := range cases {
		if _, err := services.ParseListRequest(params); !types.IsKind(err, types.InvalidRequest) {
			t.Errorf("%s: expected InvalidRequest, got %v", name, err)
		}
	}
}

func TestParseListRequestSortOrders(t *testing.T) {
	cases := map[string]store.SortOrder{
		"ALPHABETICAL_ASC":  store.SortAlphabeticalAsc,
		"ALPHABETICAL_DESC": store.SortAlphabeticalDesc,
		"COST_ASC":          store.SortCostAsc,
		"COST_DESC":         store.SortCostDesc,
		"CREATED_ASC":       store.SortCreatedAsc,
		"CREATED_DESC":      store.SortCreatedDesc,
	}
	for raw, want := range cases {
		req, err := services.ParseListRequest(services.ListParams{SortBy: strPtr(raw)})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", raw, err)
		}
		if req.Query.Sort != want {
			t.Errorf("%s: expected %s, got %s", raw, want, req.Query.Sort)
		}
	}
}
