package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/slotdao/cycled/pkg/model/candidate"
	"github.com/slotdao/cycled/pkg/model/governance"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/restapi"
)

// ProposalsResponse defines the response of a GET governance proposals REST API call.
// Only the newest proposals are returned if there are more than the result limit.
type ProposalsResponse struct {
	Count     int                    `json:"count"`
	Proposals []*governance.Proposal `json:"proposals"`
}

// CandidateResponse defines a candidate in REST API responses.
// The description is only included once the candidate is promoted.
type CandidateResponse struct {
	ID           uint64         `json:"id"`
	Proposer     ledger.Address `json:"proposer"`
	Description  string         `json:"description,omitempty"`
	SponsorCount uint32         `json:"sponsorCount"`
	Promoted     bool           `json:"promoted"`
	CreatedAt    time.Time      `json:"createdAt"`
	PromotedAt   *time.Time     `json:"promotedAt,omitempty"`
}

func newCandidateResponse(c *candidate.Candidate) *CandidateResponse {
	resp := &CandidateResponse{
		ID:           c.ID,
		Proposer:     c.Proposer,
		SponsorCount: c.SponsorCount,
		Promoted:     c.Promoted,
		CreatedAt:    c.CreatedAt,
		PromotedAt:   c.PromotedAt,
	}
	if c.Promoted {
		resp.Description = c.Description
	}
	return resp
}

// CandidatesResponse defines the response of a GET candidates REST API call.
type CandidatesResponse struct {
	Count      int                  `json:"count"`
	Candidates []*CandidateResponse `json:"candidates"`
}

// PromotedDescriptionResponse defines the response of a GET candidate description REST API call.
type PromotedDescriptionResponse struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
}

func (api *API) proposals(c echo.Context) error {
	resp := &ProposalsResponse{}
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		proposals, err := api.dao.Governance.Proposals(state)
		if err != nil {
			return err
		}
		resp.Count = len(proposals)
		resp.Proposals = newest(proposals, api.maxResults)
		return nil
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

func (api *API) proposal(c echo.Context) error {
	id, err := restapi.ParseUint64Param(c, restapi.ParameterID)
	if err != nil {
		return err
	}

	var proposal *governance.Proposal
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		proposal, err = api.dao.Governance.GetProposal(state, id)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, proposal)
}

func (api *API) candidates(c echo.Context) error {
	resp := &CandidatesResponse{}
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		candidates, err := api.dao.Candidates.Candidates(state)
		if err != nil {
			return err
		}
		resp.Count = len(candidates)
		for _, c := range newest(candidates, api.maxResults) {
			resp.Candidates = append(resp.Candidates, newCandidateResponse(c))
		}
		return nil
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

func (api *API) candidate(c echo.Context) error {
	id, err := restapi.ParseUint64Param(c, restapi.ParameterID)
	if err != nil {
		return err
	}

	var cand *candidate.Candidate
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		cand, err = api.dao.Candidates.Candidate(state, id)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, newCandidateResponse(cand))
}

func (api *API) candidateDescription(c echo.Context) error {
	id, err := restapi.ParseUint64Param(c, restapi.ParameterID)
	if err != nil {
		return err
	}

	resp := &PromotedDescriptionResponse{ID: id}
	if err := api.dao.Ledger.View(func(state ledger.State) error {
		var err error
		resp.Description, err = api.dao.Candidates.PromotedDescription(state, id)
		return err
	}); err != nil {
		return err
	}
	return restapi.JSONResponse(c, http.StatusOK, resp)
}

func newest[T any](items []T, maxResults int) []T {
	if maxResults <= 0 || len(items) <= maxResults {
		return items
	}
	return items[len(items)-maxResults:]
}
