package seed

import (
	"time"

	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

const day = 24 * time.Hour

// PlanSeed is a catalog entry inserted by the seeder.
type PlanSeed struct {
	Name        string
	Category    enums.PlanCategory
	Price       int64
	Features    []string
	Description string
	Popular     bool
}

// SubscriptionSeed gives a sample user an active plan with a completed payment.
type SubscriptionSeed struct {
	PlanName     string
	ActivatedAgo time.Duration
	// RenewsIn overrides the billing period when non-zero.
	RenewsIn    time.Duration
	AutoRenewal bool
	Method      enums.PaymentMethod
	Reference   string
}

// UserSeed is a sample account.
type UserSeed struct {
	Username     string
	Email        string
	Password     string
	FirstName    string
	LastName     string
	Phone        string
	Role         enums.UserRole
	Subscription *SubscriptionSeed
}

// Plans is the demo catalog.
var Plans = []PlanSeed{
	{
		Name:        "Basic Mobile Plan",
		Category:    enums.PlanCategoryMobile,
		Price:       299,
		Features:    []string{"2GB Daily Data", "Unlimited Calls", "100 SMS/day", "28 Days Validity"},
		Description: "Perfect for light users with essential connectivity needs",
	},
	{
		Name:        "Premium Mobile Plan",
		Category:    enums.PlanCategoryMobile,
		Price:       599,
		Features:    []string{"4GB Daily Data", "Unlimited Calls", "100 SMS/day", "Netflix Mobile Subscription", "28 Days Validity"},
		Description: "Best value plan with entertainment benefits",
		Popular:     true,
	},
	{
		Name:        "Unlimited Mobile Plan",
		Category:    enums.PlanCategoryMobile,
		Price:       999,
		Features:    []string{"Unlimited Data", "Unlimited Calls", "100 SMS/day", "Netflix + Amazon Prime", "Disney+ Hotstar", "28 Days Validity"},
		Description: "Ultimate plan for heavy data users",
	},
	{
		Name:        "Fiber Basic Internet",
		Category:    enums.PlanCategoryInternet,
		Price:       799,
		Features:    []string{"100 Mbps Speed", "Unlimited Data", "Free Installation", "24/7 Support"},
		Description: "High-speed fiber internet for home use",
	},
	{
		Name:        "Fiber Premium Internet",
		Category:    enums.PlanCategoryInternet,
		Price:       1299,
		Features:    []string{"200 Mbps Speed", "Unlimited Data", "Free Installation", "Netflix Subscription", "24/7 Priority Support"},
		Description: "Premium fiber internet with entertainment benefits",
		Popular:     true,
	},
	{
		Name:        "Basic TV Package",
		Category:    enums.PlanCategoryTV,
		Price:       399,
		Features:    []string{"150+ Channels", "HD Quality", "Free Set-top Box", "Recording Feature"},
		Description: "Essential TV package for family entertainment",
	},
	{
		Name:     "Family Bundle",
		Category: enums.PlanCategoryBundle,
		Price:    1899,
		Features: []string{
			"200 Mbps Fiber Internet",
			"Premium TV Package (300+ Channels)",
			"2 Mobile Connections (4GB each)",
			"Netflix + Amazon Prime",
			"Free Installation & Setup",
		},
		Description: "Complete family package with internet, TV, and mobile",
		Popular:     true,
	},
	{
		Name:     "Business Bundle",
		Category: enums.PlanCategoryBundle,
		Price:    2999,
		Features: []string{
			"500 Mbps Dedicated Internet",
			"5 Mobile Connections",
			"Business TV Package",
			"Static IP Address",
			"Priority Support",
			"Free Installation",
		},
		Description: "Comprehensive solution for small businesses",
	},
}

// Users are the sample accounts. john.doe holds an active mobile plan,
// test.user an internet plan renewing in three days, jane.smith nothing.
var Users = []UserSeed{
	{
		Username:  "john.doe",
		Email:     "john.doe@email.com",
		Password:  "password123",
		FirstName: "John",
		LastName:  "Doe",
		Phone:     "+91-9876543210",
		Role:      enums.UserRoleAdmin,
		Subscription: &SubscriptionSeed{
			PlanName:     "Premium Mobile Plan",
			ActivatedAgo: 15 * day,
			AutoRenewal:  true,
			Method:       enums.PaymentMethodCreditCard,
			Reference:    "GW_100001",
		},
	},
	{
		Username:  "jane.smith",
		Email:     "jane.smith@email.com",
		Password:  "password456",
		FirstName: "Jane",
		LastName:  "Smith",
		Phone:     "+91-9876543211",
		Role:      enums.UserRoleCustomer,
	},
	{
		Username:  "test.user",
		Email:     "test.user@email.com",
		Password:  "test123",
		FirstName: "Test",
		LastName:  "User",
		Phone:     "+91-9876543212",
		Role:      enums.UserRoleCustomer,
		Subscription: &SubscriptionSeed{
			PlanName:     "Fiber Basic Internet",
			ActivatedAgo: 25 * day,
			RenewsIn:     3 * day,
			AutoRenewal:  false,
			Method:       enums.PaymentMethodDebitCard,
			Reference:    "GW_100002",
		},
	},
}
