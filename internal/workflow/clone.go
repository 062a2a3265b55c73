package workflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/evanofslack/adsmutate/internal/apierr"
	"github.com/evanofslack/adsmutate/internal/mutate"
	"github.com/evanofslack/adsmutate/internal/pipeline"
	"github.com/evanofslack/adsmutate/internal/state"
	"github.com/evanofslack/adsmutate/internal/submit"
)

const (
	opClone = "clone campaign"

	stageCampaign = "campaign"
	stageAdGroups = "adGroups"
	stageKeywords = "keywords"

	adGroupKeyPrefix = "adGroup:"
)

const (
	campaignQuery = `SELECT campaign.id, campaign.name, campaign.advertising_channel_type, campaign.bidding_strategy_type, ` +
		`campaign.maximize_conversions.target_cpa_micros, campaign.maximize_conversion_value.target_roas, ` +
		`campaign.target_cpa.target_cpa_micros, campaign.target_roas.target_roas, campaign.target_spend.cpc_bid_ceiling_micros, ` +
		`campaign.network_settings.target_google_search, campaign.network_settings.target_search_network, ` +
		`campaign.network_settings.target_content_network, campaign_budget.amount_micros, campaign_budget.delivery_method ` +
		`FROM campaign WHERE campaign.id = %s`
	adGroupQuery = `SELECT ad_group.id, ad_group.name, ad_group.type, ad_group.cpc_bid_micros ` +
		`FROM ad_group WHERE campaign.id = %s AND ad_group.status != 'REMOVED' ORDER BY ad_group.id`
	keywordQuery = `SELECT ad_group_criterion.keyword.text, ad_group_criterion.keyword.match_type, ` +
		`ad_group_criterion.cpc_bid_micros, ad_group_criterion.status FROM keyword_view ` +
		`WHERE ad_group.id = %s AND ad_group_criterion.status != 'REMOVED' AND ad_group_criterion.negative = FALSE`
)

type campaignRow struct {
	Campaign struct {
		Name                    string                          `json:"name"`
		AdvertisingChannelType  string                          `json:"advertisingChannelType"`
		BiddingStrategyType     string                          `json:"biddingStrategyType"`
		MaximizeConversions     *mutate.MaximizeConversions     `json:"maximizeConversions"`
		MaximizeConversionValue *mutate.MaximizeConversionValue `json:"maximizeConversionValue"`
		TargetCpa               *mutate.TargetCpa               `json:"targetCpa"`
		TargetRoas              *mutate.TargetRoas              `json:"targetRoas"`
		TargetSpend             *mutate.TargetSpend             `json:"targetSpend"`
		NetworkSettings         *mutate.NetworkSettings         `json:"networkSettings"`
	} `json:"campaign"`
	CampaignBudget struct {
		AmountMicros   int64  `json:"amountMicros,string"`
		DeliveryMethod string `json:"deliveryMethod"`
	} `json:"campaignBudget"`
}

type adGroupRow struct {
	AdGroup struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Type         string `json:"type"`
		CpcBidMicros int64  `json:"cpcBidMicros,string"`
	} `json:"adGroup"`
}

type keywordRow struct {
	AdGroupCriterion struct {
		Keyword struct {
			Text      string `json:"text"`
			MatchType string `json:"matchType"`
		} `json:"keyword"`
		CpcBidMicros int64  `json:"cpcBidMicros,string"`
		Status       string `json:"status"`
	} `json:"adGroupCriterion"`
}

type CloneCampaignInput struct {
	CustomerID string `json:"customer_id"`
	CampaignID string `json:"campaign_id"`
	NewName    string `json:"new_name"`
}

type CloneCampaignResult struct {
	RunID          string                 `json:"run_id"`
	Status         string                 `json:"status"`
	Message        string                 `json:"message"`
	CampaignID     string                 `json:"new_campaign_id,omitempty"`
	BudgetID       string                 `json:"new_budget_id,omitempty"`
	AdGroupsCopied int                    `json:"ad_groups_copied"`
	AdGroupsTotal  int                    `json:"ad_groups_total"`
	KeywordsCopied int                    `json:"keywords_copied"`
	Stages         []pipeline.StageReport `json:"stages"`
}

func (r CloneCampaignResult) Summary() string {
	return r.Message
}

// clone carries the facts read by one stage for the stages after it.
type clone struct {
	svc        *Service
	customerID string
	sourceID   string
	newName    string
	adGroups   int
}

// CloneCampaign copies a campaign, its ad groups and their keywords in three
// stages. Each stage creates children under the real names committed by
// the stage before it. The copy is PAUSED. When a later stage fails the
// resources already created are kept and reported.
func (s *Service) CloneCampaign(ctx context.Context, in CloneCampaignInput) (CloneCampaignResult, error) {
	var out CloneCampaignResult
	cid, err := s.customer(in.CustomerID)
	if err != nil {
		return out, err
	}
	if err := mutate.ValidateID("campaign_id", in.CampaignID); err != nil {
		return out, err
	}
	c := &clone{svc: s, customerID: cid, sourceID: in.CampaignID, newName: in.NewName}

	out.RunID, err = s.run(ctx, WorkflowCloneCampaign, cid, func(ctx context.Context, run *state.Run) error {
		report, err := s.pipeline.Run(ctx, c.stages())

		out.Stages = report.Stages
		if name, ok := report.Names["campaign"]; ok {
			out.CampaignID = mutate.ResourceID(name)
		}
		if name, ok := report.Names["budget"]; ok {
			out.BudgetID = mutate.ResourceID(name)
		}
		out.AdGroupsCopied = report.Counts[mutate.ResourceAdGroup.String()]
		out.AdGroupsTotal = c.adGroups
		out.KeywordsCopied = report.Counts[mutate.ResourceCriterion.String()]
		out.Status = string(report.Status)
		out.Message = fmt.Sprintf("cloned campaign id %s with %d of %d ad groups copied", out.CampaignID, out.AdGroupsCopied, out.AdGroupsTotal)
		if out.CampaignID == "" {
			out.Message = fmt.Sprintf("clone of campaign %s failed before anything was created", in.CampaignID)
		}

		run.Status = out.Status
		run.Message = out.Message
		run.Outputs = map[string]string{}
		if out.CampaignID != "" {
			run.Outputs["new_campaign_id"] = out.CampaignID
		}
		if out.BudgetID != "" {
			run.Outputs["new_budget_id"] = out.BudgetID
		}
		for _, st := range report.Stages {
			run.Stages = append(run.Stages, state.StageSummary{Name: st.Name, Status: string(st.Status), Succeeded: st.Succeeded, Failed: st.Failed})
		}
		return err
	})
	return out, err
}

func (c *clone) stages() []pipeline.Stage {
	limits := c.svc.limits()
	return []pipeline.Stage{
		{
			Name:    stageCampaign,
			Options: submit.Options{Limit: limits.Default},
			Build:   c.buildCampaign,
		},
		{
			Name:    stageAdGroups,
			Options: submit.Options{Limit: limits.Default, PartialFailure: true},
			Build:   c.buildAdGroups,
		},
		{
			Name:        stageKeywords,
			Options:     submit.Options{Limit: limits.Bulk, PartialFailure: true},
			Concurrency: c.svc.cfg.Clone.Concurrency,
			Tolerant:    true,
			Build:       c.buildKeywords,
		},
	}
}

func (c *clone) buildCampaign(ctx context.Context, _ *pipeline.State) ([]pipeline.Unit, error) {
	rows, err := c.svc.search(ctx, c.customerID, fmt.Sprintf(campaignQuery, c.sourceID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierr.Validationf(opClone, "source campaign %s not found", c.sourceID)
	}
	var src campaignRow
	if err := rows[0].Decode(&src); err != nil {
		return nil, fmt.Errorf("decode source campaign: %w", err)
	}
	if src.Campaign.AdvertisingChannelType == "PERFORMANCE_MAX" {
		return nil, apierr.Validationf(opClone, "cloning PERFORMANCE_MAX campaigns is not supported")
	}

	name := c.newName
	if name == "" {
		name = src.Campaign.Name + " (copy)"
	}
	spec := mutate.CampaignSpec{
		Name:        name,
		Budget:      mutate.Role("budget"),
		ChannelType: src.Campaign.AdvertisingChannelType,
		Network:     src.Campaign.NetworkSettings,
	}
	spec.BiddingStrategy, spec.TargetCpaMicros, spec.TargetRoas, spec.CpcCeilMicros = biddingOf(src)

	p := mutate.NewPlan(c.customerID)
	if _, err := p.CreateBudget("budget", mutate.BudgetSpec{
		Name:           "Budget for " + name,
		AmountMicros:   src.CampaignBudget.AmountMicros,
		DeliveryMethod: src.CampaignBudget.DeliveryMethod,
	}); err != nil {
		return nil, err
	}
	if _, err := p.CreateCampaign("campaign", spec); err != nil {
		return nil, err
	}
	batch, err := p.Batch()
	if err != nil {
		return nil, err
	}
	return []pipeline.Unit{{Name: "campaign", Batch: batch}}, nil
}

// biddingOf maps the source bidding strategy onto one the copy can be
// created with. Portfolio and unsupported strategies fall back to manual CPC.
func biddingOf(src campaignRow) (strategy string, cpa int64, roas float64, ceiling int64) {
	c := src.Campaign
	switch c.BiddingStrategyType {
	case "MAXIMIZE_CONVERSIONS":
		if c.MaximizeConversions != nil {
			cpa = c.MaximizeConversions.TargetCpaMicros
		}
		return c.BiddingStrategyType, cpa, 0, 0
	case "MAXIMIZE_CONVERSION_VALUE":
		if c.MaximizeConversionValue != nil {
			roas = c.MaximizeConversionValue.TargetRoas
		}
		return c.BiddingStrategyType, 0, roas, 0
	case "TARGET_CPA":
		if c.TargetCpa != nil {
			cpa = c.TargetCpa.TargetCpaMicros
		}
		return c.BiddingStrategyType, cpa, 0, 0
	case "TARGET_ROAS":
		if c.TargetRoas != nil {
			roas = c.TargetRoas.TargetRoas
		}
		return c.BiddingStrategyType, 0, roas, 0
	case "TARGET_SPEND":
		if c.TargetSpend != nil {
			ceiling = c.TargetSpend.CpcBidCeilingMicros
		}
		return c.BiddingStrategyType, 0, 0, ceiling
	}
	return "MANUAL_CPC", 0, 0, 0
}

func (c *clone) buildAdGroups(ctx context.Context, st *pipeline.State) ([]pipeline.Unit, error) {
	campaign, ok := st.Resolve("campaign")
	if !ok {
		return nil, fmt.Errorf("new campaign was not committed")
	}
	rows, err := c.svc.search(ctx, c.customerID, fmt.Sprintf(adGroupQuery, c.sourceID))
	if err != nil {
		return nil, err
	}
	c.adGroups = len(rows)

	limit := c.svc.limits().Default
	var units []pipeline.Unit
	for start := 0; start < len(rows); start += limit {
		end := min(start+limit, len(rows))
		p := mutate.NewPlan(c.customerID)
		for _, row := range rows[start:end] {
			var src adGroupRow
			if err := row.Decode(&src); err != nil {
				return nil, fmt.Errorf("decode source ad group: %w", err)
			}
			ag := src.AdGroup
			if _, err := p.CreateAdGroup(adGroupKeyPrefix+ag.ID, mutate.AdGroupSpec{
				Name:         ag.Name,
				Campaign:     mutate.Name(campaign),
				Type:         ag.Type,
				CpcBidMicros: ag.CpcBidMicros,
			}); err != nil {
				return nil, err
			}
		}
		batch, err := p.Batch()
		if err != nil {
			return nil, err
		}
		units = append(units, pipeline.Unit{Name: fmt.Sprintf("adGroups[%d:%d]", start, end), Batch: batch})
	}
	return units, nil
}

func (c *clone) buildKeywords(ctx context.Context, st *pipeline.State) ([]pipeline.Unit, error) {
	copied := st.Match(adGroupKeyPrefix)
	keys := pipeline.Keys(copied)
	perGroup := make([][]pipeline.Unit, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.svc.cfg.Clone.Concurrency, 1))
	for i, key := range keys {
		g.Go(func() error {
			units, err := c.keywordUnits(gctx, strings.TrimPrefix(key, adGroupKeyPrefix), copied[key])
			perGroup[i] = units
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var units []pipeline.Unit
	for _, u := range perGroup {
		units = append(units, u...)
	}
	return units, nil
}

// keywordUnits reads the keywords of a source ad group and plans their
// copies under adGroup, the real name of its copy.
func (c *clone) keywordUnits(ctx context.Context, sourceAdGroup, adGroup string) ([]pipeline.Unit, error) {
	rows, err := c.svc.search(ctx, c.customerID, fmt.Sprintf(keywordQuery, sourceAdGroup))
	if err != nil {
		return nil, err
	}

	limit := c.svc.limits().Bulk
	var units []pipeline.Unit
	for start := 0; start < len(rows); start += limit {
		end := min(start+limit, len(rows))
		p := mutate.NewPlan(c.customerID)
		for _, row := range rows[start:end] {
			var src keywordRow
			if err := row.Decode(&src); err != nil {
				return nil, fmt.Errorf("decode source keyword: %w", err)
			}
			kw := src.AdGroupCriterion
			status := kw.Status
			if status != "ENABLED" && status != "PAUSED" {
				status = ""
			}
			if _, err := p.CreateKeyword("", mutate.KeywordSpec{
				AdGroup:      mutate.Name(adGroup),
				Text:         kw.Keyword.Text,
				MatchType:    kw.Keyword.MatchType,
				CpcBidMicros: kw.CpcBidMicros,
				Status:       status,
			}); err != nil {
				return nil, err
			}
		}
		batch, err := p.Batch()
		if err != nil {
			return nil, err
		}
		units = append(units, pipeline.Unit{Name: fmt.Sprintf("keywords:%s[%d:%d]", sourceAdGroup, start, end), Batch: batch})
	}
	return units, nil
}
