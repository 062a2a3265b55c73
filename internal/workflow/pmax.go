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

type PerformanceMaxInput struct {
	CustomerID      string   `json:"customer_id"`
	Name            string   `json:"name"`
	BudgetAmount    float64  `json:"budget_amount"`
	FinalURL        string   `json:"final_url"`
	AssetGroupName  string   `json:"asset_group_name"`
	Headlines       []string `json:"headlines"`
	Descriptions    []string `json:"descriptions"`
	LongHeadlines   []string `json:"long_headlines"`
	BusinessName    string   `json:"business_name"`
	BiddingStrategy string   `json:"bidding_strategy"`
	TargetCpaMicros int64    `json:"target_cpa_micros"`
	TargetRoas      float64  `json:"target_roas"`
}

type PerformanceMaxResult struct {
	RunID                string `json:"run_id"`
	CampaignID           string `json:"new_campaign_id"`
	AssetGroupID         string `json:"new_asset_group_id"`
	BudgetID             string `json:"new_budget_id"`
	CampaignResourceName string `json:"campaign_resource_name"`
	Status               string `json:"status"`
	OperationsCount      int    `json:"operations_count"`
}

var pmaxOutputs = map[string]string{
	"campaign":   "new_campaign_id",
	"assetGroup": "new_asset_group_id",
	"budget":     "new_budget_id",
}

const opPerformanceMax = "create performance max"

func (in PerformanceMaxInput) validate() error {
	if err := mutate.ValidateText("name", in.Name, mutate.MaxResourceName); err != nil {
		return err
	}
	if in.BudgetAmount <= 0 {
		return apierr.Validationf(opPerformanceMax, "budget_amount must be positive")
	}
	if err := mutate.ValidateURL("final_url", in.FinalURL); err != nil {
		return err
	}
	if err := mutate.ValidateTexts("headlines", in.Headlines, 3, 15, mutate.MaxHeadline); err != nil {
		return err
	}
	if err := mutate.ValidateTexts("descriptions", in.Descriptions, 2, 5, mutate.MaxDescription); err != nil {
		return err
	}
	if err := mutate.ValidateTexts("long_headlines", in.LongHeadlines, 1, 5, mutate.MaxLongHeadline); err != nil {
		return err
	}
	if err := mutate.ValidateText("business_name", in.BusinessName, mutate.MaxBusinessName); err != nil {
		return err
	}
	if in.BiddingStrategy != "" {
		return mutate.ValidateEnum("bidding_strategy", in.BiddingStrategy, "MAXIMIZE_CONVERSIONS", "MAXIMIZE_CONVERSION_VALUE")
	}
	return nil
}

// CreatePerformanceMax creates a budget, a PAUSED Performance Max campaign,
// an asset group with its text assets, and the root listing group in one
// atomic batch.
func (s *Service) CreatePerformanceMax(ctx context.Context, in PerformanceMaxInput) (PerformanceMaxResult, error) {
	var out PerformanceMaxResult
	if err := in.validate(); err != nil {
		return out, err
	}
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}
	strategy := in.BiddingStrategy
	if strategy == "" {
		strategy = "MAXIMIZE_CONVERSIONS"
	}
	agName := in.AssetGroupName
	if agName == "" {
		agName = in.Name + " - Asset Group"
	}

	p := mutate.NewPlan(cid)
	if _, err := p.CreateBudget("budget", mutate.BudgetSpec{
		Name:         "Budget for PMax - " + in.Name,
		AmountMicros: toMicros(in.BudgetAmount),
	}); err != nil {
		return out, err
	}
	if _, err := p.CreateCampaign("campaign", mutate.CampaignSpec{
		Name:            in.Name,
		Budget:          mutate.Role("budget"),
		ChannelType:     "PERFORMANCE_MAX",
		BiddingStrategy: strategy,
		TargetCpaMicros: in.TargetCpaMicros,
		TargetRoas:      in.TargetRoas,
	}); err != nil {
		return out, err
	}
	if _, err := p.CreateAssetGroup("assetGroup", mutate.AssetGroupSpec{
		Name:      agName,
		Campaign:  mutate.Role("campaign"),
		FinalURLs: []string{in.FinalURL},
	}); err != nil {
		return out, err
	}
	texts := assetTexts{
		Headlines:     in.Headlines,
		Descriptions:  in.Descriptions,
		LongHeadlines: in.LongHeadlines,
		BusinessName:  in.BusinessName,
	}
	if err := texts.plan(p, mutate.Role("assetGroup")); err != nil {
		return out, err
	}
	if _, err := p.CreateListingGroupFilter("", mutate.ListingGroupSpec{
		AssetGroup: mutate.Role("assetGroup"),
		Type:       "UNIT_INCLUDED",
	}); err != nil {
		return out, err
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowPerformanceMax, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Default})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		o := reconcile.Reconcile(batch, res, pmaxOutputs)
		out.CampaignID = o.ID("new_campaign_id")
		out.AssetGroupID = o.ID("new_asset_group_id")
		out.BudgetID = o.ID("new_budget_id")
		out.CampaignResourceName = o.Names["campaign"]
		out.Status = "PAUSED"
		out.OperationsCount = batch.Len()
		run.Outputs = o.Values
		run.Message = out.Summary()
		return nil
	})
	return out, err
}

func (r PerformanceMaxResult) Summary() string {
	return fmt.Sprintf("Performance Max campaign %s created (PAUSED)", r.CampaignID)
}

// assetTexts are the text assets attached to an asset group.
type assetTexts struct {
	Headlines     []string
	Descriptions  []string
	LongHeadlines []string
	BusinessName  string
}

type textGroup struct {
	fieldType string
	texts     []string
}

// plan creates each text asset and links it to assetGroup under its field
// type.
func (t assetTexts) plan(p *mutate.Plan, assetGroup mutate.Ref) error {
	groups := []textGroup{
		{"HEADLINE", t.Headlines},
		{"DESCRIPTION", t.Descriptions},
		{"LONG_HEADLINE", t.LongHeadlines},
	}
	if t.BusinessName != "" {
		groups = append(groups, textGroup{"BUSINESS_NAME", []string{t.BusinessName}})
	}
	for _, g := range groups {
		for i, text := range g.texts {
			role := fmt.Sprintf("asset:%s:%d", strings.ToLower(g.fieldType), i)
			if _, err := p.CreateTextAsset(role, text); err != nil {
				return err
			}
			if err := p.LinkAssetToAssetGroup(assetGroup, mutate.Role(role), g.fieldType); err != nil {
				return err
			}
		}
	}
	return nil
}

type AssetGroupInput struct {
	CustomerID    string   `json:"customer_id"`
	CampaignID    string   `json:"campaign_id"`
	Name          string   `json:"name"`
	FinalURLs     []string `json:"final_urls"`
	Path1         string   `json:"path1"`
	Path2         string   `json:"path2"`
	Headlines     []string `json:"headlines"`
	Descriptions  []string `json:"descriptions"`
	LongHeadlines []string `json:"long_headlines"`
	BusinessName  string   `json:"business_name"`
	// Brands restricts the asset group to these product brands. Empty
	// includes every product.
	Brands []string `json:"brands"`
}

type AssetGroupResult struct {
	RunID           string `json:"run_id"`
	AssetGroupID    string `json:"new_asset_group_id"`
	ListingGroups   int    `json:"listing_groups"`
	OperationsCount int    `json:"operations_count"`
}

func (r AssetGroupResult) Summary() string {
	return fmt.Sprintf("asset group %s created with %d listing groups", r.AssetGroupID, r.ListingGroups)
}

// CreateAssetGroup adds an asset group and its listing group tree to an
// existing Performance Max campaign. With brands the root is a
// subdivision whose children include each brand and exclude the rest.
func (s *Service) CreateAssetGroup(ctx context.Context, in AssetGroupInput) (AssetGroupResult, error) {
	var out AssetGroupResult
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}
	if err := mutate.ValidateID("campaign_id", in.CampaignID); err != nil {
		return out, err
	}
	if len(in.Headlines) > 15 || len(in.Descriptions) > 5 || len(in.LongHeadlines) > 5 {
		return out, apierr.Validationf("create asset group", "too many text assets: at most 15 headlines, 5 descriptions and 5 long headlines")
	}
	if in.BusinessName != "" {
		if err := mutate.ValidateText("business_name", in.BusinessName, mutate.MaxBusinessName); err != nil {
			return out, err
		}
	}
	for _, h := range in.Headlines {
		if err := mutate.ValidateText("headline", h, mutate.MaxHeadline); err != nil {
			return out, err
		}
	}

	p := mutate.NewPlan(cid)
	campaign := mutate.Name(mutate.ResourceName(cid, mutate.ResourceCampaign.Collection(), in.CampaignID))
	if _, err := p.CreateAssetGroup("assetGroup", mutate.AssetGroupSpec{
		Name:      in.Name,
		Campaign:  campaign,
		FinalURLs: in.FinalURLs,
		Path1:     in.Path1,
		Path2:     in.Path2,
	}); err != nil {
		return out, err
	}
	texts := assetTexts{
		Headlines:     in.Headlines,
		Descriptions:  in.Descriptions,
		LongHeadlines: in.LongHeadlines,
		BusinessName:  in.BusinessName,
	}
	if err := texts.plan(p, mutate.Role("assetGroup")); err != nil {
		return out, err
	}
	listing, err := planListingTree(p, mutate.Role("assetGroup"), in.Brands)
	if err != nil {
		return out, err
	}
	batch, err := p.Batch()
	if err != nil {
		return out, err
	}

	out.RunID, err = s.run(ctx, WorkflowAssetGroup, cid, func(ctx context.Context, run *state.Run) error {
		res, err := s.submitter.Submit(ctx, batch, submit.Options{Limit: s.limits().Default})
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		o := reconcile.Reconcile(batch, res, map[string]string{"assetGroup": "new_asset_group_id"})
		out.AssetGroupID = o.ID("new_asset_group_id")
		out.ListingGroups = listing
		out.OperationsCount = batch.Len()
		run.Outputs = o.Values
		run.Message = out.Summary()
		return nil
	})
	return out, err
}

// planListingTree returns the number of listing group nodes planned.
func planListingTree(p *mutate.Plan, assetGroup mutate.Ref, brands []string) (int, error) {
	if len(brands) == 0 {
		_, err := p.CreateListingGroupFilter("", mutate.ListingGroupSpec{AssetGroup: assetGroup, Type: "UNIT_INCLUDED"})
		return 1, err
	}

	if _, err := p.CreateListingGroupFilter("listing:root", mutate.ListingGroupSpec{AssetGroup: assetGroup, Type: "SUBDIVISION"}); err != nil {
		return 0, err
	}
	root := mutate.Role("listing:root")
	seen := make(map[string]bool, len(brands))
	nodes := 1
	for _, b := range brands {
		brand := strings.TrimSpace(b)
		if brand == "" {
			return 0, apierr.Validationf("plan listing groups", "brand names cannot be empty")
		}
		if seen[strings.ToLower(brand)] {
			continue
		}
		seen[strings.ToLower(brand)] = true
		if _, err := p.CreateListingGroupFilter("", mutate.ListingGroupSpec{AssetGroup: assetGroup, Parent: root, Type: "UNIT_INCLUDED", Brand: &brand}); err != nil {
			return 0, err
		}
		nodes++
	}
	other := ""
	if _, err := p.CreateListingGroupFilter("", mutate.ListingGroupSpec{AssetGroup: assetGroup, Parent: root, Type: "UNIT_EXCLUDED", Brand: &other}); err != nil {
		return 0, err
	}
	return nodes + 1, nil
}
