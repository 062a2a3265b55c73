package mutate

import (
	"strings"
)

// ResourceName formats customers/{customerID}/{collection}/{id}. Composite
// keys are joined with "~", e.g. adGroupAds/{adGroupID}~{adID}.
func ResourceName(customerID, collection string, ids ...string) string {
	return "customers/" + customerID + "/" + collection + "/" + strings.Join(ids, "~")
}

// ResourceID returns the trailing id segment of a resource name.
func ResourceID(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ResourceType enumerates the kinds of resource an Operation can target.
type ResourceType int

const (
	ResourceBudget ResourceType = iota + 1
	ResourceCampaign
	ResourceAssetGroup
	ResourceAsset
	ResourceAssetGroupAsset
	ResourceListingGroupFilter
	ResourceAdGroup
	ResourceCriterion
	ResourceAdGroupAd
	ResourceLabel
	ResourceCampaignLabel
	ResourceAdGroupLabel
	ResourceCampaignAsset
	ResourceSharedSet
	ResourceSharedCriterion
	ResourceCampaignSharedSet
)

type typeInfo struct {
	name       string
	collection string
	operation  string
}

var types = map[ResourceType]typeInfo{
	ResourceBudget:             {"budget", "campaignBudgets", "campaignBudgetOperation"},
	ResourceCampaign:           {"campaign", "campaigns", "campaignOperation"},
	ResourceAssetGroup:         {"asset_group", "assetGroups", "assetGroupOperation"},
	ResourceAsset:              {"asset", "assets", "assetOperation"},
	ResourceAssetGroupAsset:    {"asset_group_asset", "assetGroupAssets", "assetGroupAssetOperation"},
	ResourceListingGroupFilter: {"listing_group_filter", "assetGroupListingGroupFilters", "assetGroupListingGroupFilterOperation"},
	ResourceAdGroup:            {"ad_group", "adGroups", "adGroupOperation"},
	ResourceCriterion:          {"criterion", "adGroupCriteria", "adGroupCriterionOperation"},
	ResourceAdGroupAd:          {"ad", "adGroupAds", "adGroupAdOperation"},
	ResourceLabel:              {"label", "labels", "labelOperation"},
	ResourceCampaignLabel:      {"campaign_label", "campaignLabels", "campaignLabelOperation"},
	ResourceAdGroupLabel:       {"ad_group_label", "adGroupLabels", "adGroupLabelOperation"},
	ResourceCampaignAsset:      {"campaign_asset", "campaignAssets", "campaignAssetOperation"},
	ResourceSharedSet:          {"shared_set", "sharedSets", "sharedSetOperation"},
	ResourceSharedCriterion:    {"shared_criterion", "sharedCriteria", "sharedCriterionOperation"},
	ResourceCampaignSharedSet:  {"campaign_shared_set", "campaignSharedSets", "campaignSharedSetOperation"},
}

func (t ResourceType) String() string {
	if info, ok := types[t]; ok {
		return info.name
	}
	return "unknown"
}

// Collection is the path segment used in resource names of this type.
func (t ResourceType) Collection() string {
	return types[t].collection
}

// OperationKey is the discriminant of the tagged union sent over the wire.
func (t ResourceType) OperationKey() string {
	return types[t].operation
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	_, ok := types[t]
	return ok
}
