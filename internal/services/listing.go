package services

import (
	"strconv"
	"strings"

	"github.com/localrally/petitiond/internal/store"
	"github.com/localrally/petitiond/internal/types"
)

// ListParams carries the raw, still-unparsed petition list parameters.
// Nil means the parameter was absent; validation of every present value
// happens in ParseListRequest so no handler-level state leaks in.
type ListParams struct {
	Q              *string
	CategoryIDs    []string
	OwnerID        *string
	SupportingCost *string
	SupporterID    *string
	SortBy         *string
	StartIndex     *string
	Count          *string
}

// ListRequest is a fully validated listing request: a typed predicate set
// for the repository plus the page window applied after deduplication.
type ListRequest struct {
	Query      store.PetitionQuery
	StartIndex int
	Count      *int
}

// PetitionList is one page of matches plus the total number of distinct
// matching petitions before the page window was applied.
type PetitionList struct {
	Count     int                      `json:"count"`
	Petitions []store.PetitionOverview `json:"petitions"`
}

var sortOrders = map[string]store.SortOrder{
	"ALPHABETICAL_ASC":  store.SortAlphabeticalAsc,
	"ALPHABETICAL_DESC": store.SortAlphabeticalDesc,
	"COST_ASC":          store.SortCostAsc,
	"COST_DESC":         store.SortCostDesc,
	"CREATED_ASC":       store.SortCreatedAsc,
	"CREATED_DESC":      store.SortCreatedDesc,
}

// ParseListRequest validates raw list parameters into a ListRequest, or
// fails with an InvalidRequest error. It is a pure function.
func ParseListRequest(params ListParams) (*ListRequest, error) {
	req := &ListRequest{
		Query: store.PetitionQuery{Sort: store.SortCreatedAsc},
	}

	if params.Q != nil {
		q := strings.TrimSpace(*params.Q)
		q = strings.Trim(q, `'"`)
		if q == "" {
			return nil, types.NewError(types.InvalidRequest, "q must not be empty")
		}
		req.Query.Q = &q
	}

	if len(params.CategoryIDs) > 0 {
		ids := make([]int64, 0, len(params.CategoryIDs))
		for _, raw := range params.CategoryIDs {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, types.NewError(types.InvalidRequest, "categoryIds must be integers")
			}
			ids = append(ids, id)
		}
		req.Query.CategoryIDs = ids
	}

	if params.OwnerID != nil {
		id, err := strconv.ParseInt(*params.OwnerID, 10, 64)
		if err != nil {
			return nil, types.NewError(types.InvalidRequest, "ownerId must be an integer")
		}
		req.Query.OwnerID = &id
	}

	if params.SupportingCost != nil {
		cost, err := strconv.ParseFloat(*params.SupportingCost, 64)
		if err != nil || cost < 0 {
			return nil, types.NewError(types.InvalidRequest, "supportingCost must be a number >= 0")
		}
		req.Query.MaxTierCost = &cost
	}

	if params.SupporterID != nil {
		id, err := strconv.ParseInt(*params.SupporterID, 10, 64)
		if err != nil {
			return nil, types.NewError(types.InvalidRequest, "supporterId must be an integer")
		}
		req.Query.SupporterID = &id
	}

	if params.SortBy != nil {
		sort, ok := sortOrders[*params.SortBy]
		if !ok {
			return nil, types.NewError(types.InvalidRequest, "sortBy must be one of the supported sort orders")
		}
		req.Query.Sort = sort
	}

	if params.StartIndex != nil {
		start, err := strconv.Atoi(*params.StartIndex)
		if err != nil || start < 0 {
			return nil, types.NewError(types.InvalidRequest, "startIndex must be a non-negative integer")
		}
		req.StartIndex = start
	}

	if params.Count != nil {
		count, err := strconv.Atoi(*params.Count)
		if err != nil || count < 0 {
			return nil, types.NewError(types.InvalidRequest, "count must be a non-negative integer")
		}
		req.Count = &count
	}

	return req, nil
}

// page applies the window to the deduplicated, sorted result set.
func page(rows []store.PetitionOverview, startIndex int, count *int) []store.PetitionOverview {
	if startIndex >= len(rows) {
		return []store.PetitionOverview{}
	}
	rows = rows[startIndex:]
	if count != nil && *count < len(rows) {
		rows = rows[:*count]
	}
	return rows
}
