package enums

// PlanCategory groups catalog offerings. A user holds at most one active
// plan per category.
type PlanCategory string

const (
	PlanCategoryMobile   PlanCategory = "mobile"
	PlanCategoryInternet PlanCategory = "internet"
	PlanCategoryTV       PlanCategory = "tv"
	PlanCategoryBundle   PlanCategory = "bundle"
)

var planCategories = members[PlanCategory]{
	PlanCategoryMobile,
	PlanCategoryInternet,
	PlanCategoryTV,
	PlanCategoryBundle,
}

func (c PlanCategory) String() string { return string(c) }

// DisplayName is the catalog label.
func (c PlanCategory) DisplayName() string {
	switch c {
	case PlanCategoryMobile:
		return "Mobile"
	case PlanCategoryInternet:
		return "Internet"
	case PlanCategoryTV:
		return "TV"
	case PlanCategoryBundle:
		return "Bundle"
	}
	return string(c)
}

func (c PlanCategory) IsValid() bool { return planCategories.has(c) }

func ParsePlanCategory(value string) (PlanCategory, error) {
	return planCategories.parse("plan category", value)
}
