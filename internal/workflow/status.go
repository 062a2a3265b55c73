package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/reconcile"
	"github.com/evanofslack/adsmutate/internal/state"
	"github.com/evanofslack/adsmutate/internal/submit"
)

// StatusTarget names one resource whose status changes. Ads also need the
// id of their ad group.
type StatusTarget struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	AdGroupID string `json:"ad_group_id,omitempty"`
}

type BatchSetStatusInput struct {
	CustomerID string         `json:"customer_id"`
	Status     string         `json:"status"`
	Resources  []StatusTarget `json:"resources"`
}

type BatchSetStatusResult struct {
	RunID      string   `json:"run_id"`
	Status     string   `json:"status"`
	Successful int      `json:"successful_operations"`
	Results    []string `json:"results"`
}

func (r BatchSetStatusResult) Summary() string {
	return fmt.Sprintf("%d resources set to %s", r.Successful, r.Status)
}

const opBatchSetStatus = "batch set status"

// BatchSetStatus sets ENABLED or PAUSED on campaigns, ad groups and ads in
// one request. REMOVED is refused because it cannot be undone.
func (s *Service) BatchSetStatus(ctx context.Context, in BatchSetStatusInput) (BatchSetStatusResult, error) {
	var out BatchSetStatusResult
	status := strings.ToUpper(in.Status)
	if status != "ENABLED" && status != "PAUSED" {
		return out, apierr.Validationf(opBatchSetStatus, "invalid status %q: use ENABLED or PAUSED (REMOVED is not allowed in batch)", in.Status)
	}
	if len(in.Resources) == 0 {
		return out, apierr.Validationf(opBatchSetStatus, "resources list cannot be empty")
	}
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}

	p := mutate.NewPlan(cid)
	for i, r := range in.Resources {
		if err := mutate.ValidateID(fmt.Sprintf("item %d id", i), r.ID); err != nil {
			return out, err
		}
		var (
			rt   mutate.ResourceType
			name string
		)
		switch r.Type {
		case "campaign":
			rt = mutate.ResourceCampaign
			name = mutate.ResourceName(cid, rt.Collection(), r.ID)
		case "ad_group":
			rt = mutate.ResourceAdGroup
			name = mutate.ResourceName(cid, rt.Collection(), r.ID)
		case "ad":
			if r.AdGroupID == "" {
				return out, apierr.Validationf(opBatchSetStatus, "item %d: ad_group_id is required for ads", i)
			}
			if err := mutate.ValidateID(fmt.Sprintf("item %d ad_group_id", i), r.AdGroupID); err != nil {
				return out, err
			}
			rt = mutate.ResourceAdGroupAd
			name = mutate.ResourceName(cid, rt.Collection(), r.AdGroupID, r.ID)
		default:
			return out, apierr.Validationf(opBatchSetStatus, "item %d: invalid type %q, use campaign, ad_group or ad", i, r.Type)
		}
		if err := p.UpdateStatus(rt, mutate.Name(name), status); err != nil {
			return out, err
		}
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowBatchSetStatus, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Status})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		out.Status = status
		for _, e := range res.Entries {
			out.Results = append(out.Results, e.ResourceName)
		}
		out.Successful = res.Succeeded()
		run.Message = out.Summary()
		return nil
	})
	return out, err
}

type AddKeywordsInput struct {
	CustomerID string         `json:"customer_id"`
	AdGroupID  string         `json:"ad_group_id"`
	Keywords   []KeywordInput `json:"keywords"`
	CpcBid     *float64       `json:"cpc_bid,omitempty"`
}

type AddKeywordsResult struct {
	RunID         string            `json:"run_id"`
	Status        string            `json:"status"`
	Added         int               `json:"added"`
	Failed        int               `json:"failed"`
	ResourceNames []string          `json:"resource_names"`
	Causes        []reconcile.Cause `json:"causes,omitempty"`
}

func (r AddKeywordsResult) Summary() string {
	if r.Failed > 0 {
		return fmt.Sprintf("%d keywords added, %d failed", r.Added, r.Failed)
	}
	return fmt.Sprintf("%d keywords added", r.Added)
}

// AddKeywords creates keyword criteria with partial failure enabled, so one
// rejected keyword does not block the rest.
func (s *Service) AddKeywords(ctx context.Context, in AddKeywordsInput) (AddKeywordsResult, error) {
	var out AddKeywordsResult
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}
	if err := mutate.ValidateID("ad_group_id", in.AdGroupID); err != nil {
		return out, err
	}
	if len(in.Keywords) == 0 {
		return out, apierr.Validationf("add keywords", "keywords list cannot be empty")
	}
	var bid int64
	if in.CpcBid != nil {
		if *in.CpcBid < 0 {
			return out, apierr.Validationf("add keywords", "cpc_bid cannot be negative")
		}
		bid = toMicros(*in.CpcBid)
	}

	p := mutate.NewPlan(cid)
	adGroup := mutate.Name(mutate.ResourceName(cid, mutate.ResourceAdGroup.Collection(), in.AdGroupID))
	for _, kw := range in.Keywords {
		if _, err := p.CreateKeyword("", mutate.KeywordSpec{
			AdGroup:      adGroup,
			Text:         kw.Text,
			MatchType:    kw.matchType(),
			CpcBidMicros: bid,
		}); err != nil {
			return out, err
		}
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowAddKeywords, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Bulk, PartialFailure: true})
		if err != nil {
			return err
		}
		out.Added = reconcile.CountSucceeded(res, mutate.ResourceCriterion)
		out.Failed = res.Failed()
		for _, e := range res.Entries {
			if e.OK() {
				out.ResourceNames = append(out.ResourceNames, e.ResourceName)
			}
		}
		out.Causes = reconcile.Causes(res)
		out.Status = statusOf(out.Added, out.Failed)
		run.Status = out.Status
		run.Message = out.Summary()
		if out.Added == 0 {
			return res.Err()
		}
		return nil
	})
	return out, err
}
