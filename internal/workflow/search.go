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

type SearchCampaignInput struct {
	CustomerID      string         `json:"customer_id"`
	Name            string         `json:"name"`
	BudgetAmount    float64        `json:"budget_amount"`
	BiddingStrategy string         `json:"bidding_strategy"`
	AdGroupName     string         `json:"ad_group_name"`
	CpcBid          float64        `json:"cpc_bid"`
	FinalURL        string         `json:"final_url"`
	Headlines       []string       `json:"headlines"`
	Descriptions    []string       `json:"descriptions"`
	Path1           string         `json:"path1"`
	Path2           string         `json:"path2"`
	Keywords        []KeywordInput `json:"keywords"`
}

type SearchCampaignResult struct {
	RunID           string `json:"run_id"`
	CampaignID      string `json:"new_campaign_id"`
	BudgetID        string `json:"new_budget_id"`
	AdGroupID       string `json:"new_ad_group_id"`
	AdID            string `json:"new_ad_id"`
	KeywordsAdded   int    `json:"keywords_added"`
	OperationsCount int    `json:"operations_count"`
}

func (r SearchCampaignResult) Summary() string {
	return fmt.Sprintf("search campaign %s created (PAUSED) with %d keywords", r.CampaignID, r.KeywordsAdded)
}

// CreateSearchCampaign builds budget, campaign, ad group, responsive search
// ad and keywords as one atomic batch.
func (s *Service) CreateSearchCampaign(ctx context.Context, in SearchCampaignInput) (SearchCampaignResult, error) {
	var out SearchCampaignResult
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}
	if in.BudgetAmount <= 0 {
		return out, apierr.Validationf("create search campaign", "budget_amount must be positive")
	}
	if in.CpcBid < 0 {
		return out, apierr.Validationf("create search campaign", "cpc_bid cannot be negative")
	}
	agName := in.AdGroupName
	if agName == "" {
		agName = in.Name + " - Ad Group"
	}

	p := mutate.NewPlan(cid)
	if _, err := p.CreateBudget("budget", mutate.BudgetSpec{Name: "Budget for " + in.Name, AmountMicros: toMicros(in.BudgetAmount)}); err != nil {
		return out, err
	}
	if _, err := p.CreateCampaign("campaign", mutate.CampaignSpec{
		Name:            in.Name,
		Budget:          mutate.Role("budget"),
		ChannelType:     "SEARCH",
		BiddingStrategy: strings.ToUpper(in.BiddingStrategy),
	}); err != nil {
		return out, err
	}
	if _, err := p.CreateAdGroup("adGroup", mutate.AdGroupSpec{
		Name:         agName,
		Campaign:     mutate.Role("campaign"),
		CpcBidMicros: toMicros(in.CpcBid),
	}); err != nil {
		return out, err
	}
	if _, err := p.CreateResponsiveSearchAd("ad", mutate.ResponsiveSearchAdSpec{
		AdGroup:      mutate.Role("adGroup"),
		Headlines:    in.Headlines,
		Descriptions: in.Descriptions,
		FinalURLs:    []string{in.FinalURL},
		Path1:        in.Path1,
		Path2:        in.Path2,
	}); err != nil {
		return out, err
	}
	for _, kw := range in.Keywords {
		if _, err := p.CreateKeyword("", mutate.KeywordSpec{AdGroup: mutate.Role("adGroup"), Text: kw.Text, MatchType: kw.matchType()}); err != nil {
			return out, err
		}
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowSearchCampaign, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Default})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		o := reconcile.Reconcile(batch, res, map[string]string{
			"campaign": "new_campaign_id",
			"budget":   "new_budget_id",
			"adGroup":  "new_ad_group_id",
		})
		out.CampaignID = o.ID("new_campaign_id")
		out.BudgetID = o.ID("new_budget_id")
		out.AdGroupID = o.ID("new_ad_group_id")
		out.AdID = adID(o.Names["ad"])
		out.KeywordsAdded = reconcile.CountSucceeded(res, mutate.ResourceCriterion)
		out.OperationsCount = batch.Len()
		run.Outputs = o.Values
		run.Message = out.Summary()
		return nil
	})
	return out, err
}
