package workflow

import (
	"context"
	"fmt"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/reconcile"
	"github.com/evanofslack/adsmutate/internal/state"
	"github.com/evanofslack/adsmutate/internal/submit"
)

type LabelInput struct {
	CustomerID  string   `json:"customer_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Color       string   `json:"background_color"`
	CampaignIDs []string `json:"campaign_ids"`
	AdGroupIDs  []string `json:"ad_group_ids"`
}

type LabelResult struct {
	RunID            string `json:"run_id"`
	LabelID          string `json:"new_label_id"`
	CampaignsLabeled int    `json:"campaigns_labeled"`
	AdGroupsLabeled  int    `json:"ad_groups_labeled"`
}

func (r LabelResult) Summary() string {
	return fmt.Sprintf("label %s applied to %d campaigns and %d ad groups", r.LabelID, r.CampaignsLabeled, r.AdGroupsLabeled)
}

// CreateLabel creates a label and applies it in the same batch. The links
// reference the label by its placeholder.
func (s *Service) CreateLabel(ctx context.Context, in LabelInput) (LabelResult, error) {
	var out LabelResult
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}

	p := mutate.NewPlan(cid)
	if _, err := p.CreateLabel("label", mutate.LabelSpec{Name: in.Name, Description: in.Description, Color: in.Color}); err != nil {
		return out, err
	}
	targets := []struct {
		rt  mutate.ResourceType
		ids []string
	}{
		{mutate.ResourceCampaign, in.CampaignIDs},
		{mutate.ResourceAdGroup, in.AdGroupIDs},
	}
	for _, t := range targets {
		for _, id := range t.ids {
			if err := mutate.ValidateID(t.rt.String()+" id", id); err != nil {
				return out, err
			}
			target := mutate.Name(mutate.ResourceName(cid, t.rt.Collection(), id))
			if err := p.LinkLabel(t.rt, target, mutate.Role("label")); err != nil {
				return out, err
			}
		}
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowLabel, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Default})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		o := reconcile.Reconcile(batch, res, map[string]string{"label": "new_label_id"})
		out.LabelID = o.ID("new_label_id")
		out.CampaignsLabeled = reconcile.CountSucceeded(res, mutate.ResourceCampaignLabel)
		out.AdGroupsLabeled = reconcile.CountSucceeded(res, mutate.ResourceAdGroupLabel)
		run.Outputs = o.Values
		run.Message = out.Summary()
		return nil
	})
	return out, err
}

type NegativeKeywordListInput struct {
	CustomerID  string         `json:"customer_id"`
	Name        string         `json:"name"`
	Keywords    []KeywordInput `json:"keywords"`
	CampaignIDs []string       `json:"campaign_ids"`
}

type NegativeKeywordListResult struct {
	RunID           string `json:"run_id"`
	SharedSetID     string `json:"new_shared_set_id"`
	KeywordsAdded   int    `json:"keywords_added"`
	CampaignsLinked int    `json:"campaigns_linked"`
}

func (r NegativeKeywordListResult) Summary() string {
	return fmt.Sprintf("negative keyword list %s created with %d keywords, linked to %d campaigns", r.SharedSetID, r.KeywordsAdded, r.CampaignsLinked)
}

// CreateNegativeKeywordList creates a shared negative keyword set, fills it
// and optionally attaches it to campaigns, all in one batch.
func (s *Service) CreateNegativeKeywordList(ctx context.Context, in NegativeKeywordListInput) (NegativeKeywordListResult, error) {
	var out NegativeKeywordListResult
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}
	if len(in.Keywords) == 0 {
		return out, apierr.Validationf("create negative keyword list", "keywords list cannot be empty")
	}

	p := mutate.NewPlan(cid)
	if _, err := p.CreateSharedSet("sharedSet", mutate.SharedSetSpec{Name: in.Name, Type: "NEGATIVE_KEYWORDS"}); err != nil {
		return out, err
	}
	for _, kw := range in.Keywords {
		if err := p.CreateSharedCriterion(mutate.Role("sharedSet"), kw.Text, kw.matchType()); err != nil {
			return out, err
		}
	}
	for _, id := range in.CampaignIDs {
		if err := mutate.ValidateID("campaign id", id); err != nil {
			return out, err
		}
		campaign := mutate.Name(mutate.ResourceName(cid, mutate.ResourceCampaign.Collection(), id))
		if err := p.LinkSharedSet(campaign, mutate.Role("sharedSet")); err != nil {
			return out, err
		}
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowNegativeKeywordList, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Default})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		o := reconcile.Reconcile(batch, res, map[string]string{"sharedSet": "new_shared_set_id"})
		out.SharedSetID = o.ID("new_shared_set_id")
		out.KeywordsAdded = reconcile.CountSucceeded(res, mutate.ResourceSharedCriterion)
		out.CampaignsLinked = reconcile.CountSucceeded(res, mutate.ResourceCampaignSharedSet)
		run.Outputs = o.Values
		run.Message = out.Summary()
		return nil
	})
	return out, err
}
