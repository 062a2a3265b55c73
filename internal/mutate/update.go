package mutate

import (
	"github.com/evanofslack/adsmutate/internal/apierr"
)

// update appends an update of target. The mask lists only the fields the
// caller changed.
func (p *Plan) update(res Resource, target string, mask []string, refs ...string) error {
	if len(mask) == 0 {
		return apierr.Validationf(opBuild, "update %s %s changes no fields", res.ResourceType(), target)
	}
	p.ops = append(p.ops, Operation{
		Kind:       KindUpdate,
		Type:       res.ResourceType(),
		Resource:   res,
		Name:       target,
		UpdateMask: mask,
		References: refs,
	})
	return nil
}

// UpdateStatus sets the status of a campaign, ad group, ad, keyword or
// asset group.
func (p *Plan) UpdateStatus(rt ResourceType, target Ref, status string) error {
	if err := ValidateStatus(status); err != nil {
		return err
	}
	name, err := p.resolve(rt.String(), target)
	if err != nil {
		return err
	}
	var res Resource
	switch rt {
	case ResourceCampaign:
		res = Campaign{ResourceName: name, Status: status}
	case ResourceAdGroup:
		res = AdGroup{ResourceName: name, Status: status}
	case ResourceAdGroupAd:
		res = AdGroupAd{ResourceName: name, Status: status}
	case ResourceCriterion:
		res = AdGroupCriterion{ResourceName: name, Status: status}
	case ResourceAssetGroup:
		res = AssetGroup{ResourceName: name, Status: status}
	default:
		return apierr.Validationf(opBuild, "status updates are not supported for %s", rt)
	}
	return p.update(res, name, []string{"status"})
}

type CampaignUpdate struct {
	Name      *string
	Status    *string
	StartDate *string
	EndDate   *string
}

func (p *Plan) UpdateCampaign(target Ref, u CampaignUpdate) error {
	name, err := p.resolve("campaign", target)
	if err != nil {
		return err
	}
	c := Campaign{ResourceName: name}
	var mask []string
	if u.Name != nil {
		if err := ValidateText("campaign name", *u.Name, MaxResourceName); err != nil {
			return err
		}
		c.Name = *u.Name
		mask = append(mask, "name")
	}
	if u.Status != nil {
		if err := ValidateStatus(*u.Status); err != nil {
			return err
		}
		c.Status = *u.Status
		mask = append(mask, "status")
	}
	if u.StartDate != nil {
		c.StartDate = *u.StartDate
		mask = append(mask, "start_date")
	}
	if u.EndDate != nil {
		c.EndDate = *u.EndDate
		mask = append(mask, "end_date")
	}
	return p.update(c, name, mask)
}

type BudgetUpdate struct {
	Name         *string
	AmountMicros *int64
}

func (p *Plan) UpdateBudget(target Ref, u BudgetUpdate) error {
	name, err := p.resolve("budget", target)
	if err != nil {
		return err
	}
	b := Budget{ResourceName: name}
	var mask []string
	if u.Name != nil {
		if err := ValidateText("budget name", *u.Name, MaxResourceName); err != nil {
			return err
		}
		b.Name = *u.Name
		mask = append(mask, "name")
	}
	if u.AmountMicros != nil {
		if *u.AmountMicros <= 0 {
			return apierr.Validationf(opBuild, "budget amount must be positive, got %d micros", *u.AmountMicros)
		}
		b.AmountMicros = *u.AmountMicros
		mask = append(mask, "amount_micros")
	}
	return p.update(b, name, mask)
}

// KeywordUpdate changes a keyword criterion. A nil FinalURLs leaves the
// urls untouched.
type KeywordUpdate struct {
	Status       *string
	CpcBidMicros *int64
	FinalURLs    []string
}

func (p *Plan) UpdateKeyword(target Ref, u KeywordUpdate) error {
	name, err := p.resolve("keyword", target)
	if err != nil {
		return err
	}
	c := AdGroupCriterion{ResourceName: name}
	var mask []string
	if u.Status != nil {
		if err := ValidateStatus(*u.Status); err != nil {
			return err
		}
		c.Status = *u.Status
		mask = append(mask, "status")
	}
	if u.CpcBidMicros != nil {
		if *u.CpcBidMicros < 0 {
			return apierr.Validationf(opBuild, "cpc bid cannot be negative")
		}
		c.CpcBidMicros = *u.CpcBidMicros
		mask = append(mask, "cpc_bid_micros")
	}
	if u.FinalURLs != nil {
		for _, url := range u.FinalURLs {
			if err := ValidateURL("final_url", url); err != nil {
				return err
			}
		}
		c.FinalUrls = u.FinalURLs
		mask = append(mask, "final_urls")
	}
	return p.update(c, name, mask)
}

// Remove deletes target.
func (p *Plan) Remove(rt ResourceType, target Ref) error {
	if !rt.Valid() {
		return apierr.Validationf(opBuild, "unknown resource type %d", rt)
	}
	name, err := p.resolve(rt.String(), target)
	if err != nil {
		return err
	}
	p.ops = append(p.ops, Operation{Kind: KindRemove, Type: rt, Name: name})
	return nil
}
