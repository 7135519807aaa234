package quota

import (
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/storage"
)

// DefaultCatalog returns the built-in monthly allowances for the AWS
// always-free and 12-month free tiers. Values mirror the published limits;
// changing an allowance is an administrative action, not an API.
func DefaultCatalog() []storage.QuotaDefinition {
	return []storage.QuotaDefinition{
		{
			Resource:     "Amazon Elastic Compute Cloud - Compute",
			SubMetric:    "t2.micro",
			MonthlyLimit: decimal.NewFromInt(750),
			Unit:         "hours",
			Category:     storage.CategoryCompute,
			Description:  "t2.micro instance hours per month",
		},
		{
			Resource:     "Amazon Simple Storage Service",
			SubMetric:    "Standard Storage",
			MonthlyLimit: decimal.NewFromInt(5),
			Unit:         "GB",
			Category:     storage.CategoryStorage,
			Description:  "5 GB of Standard Storage",
		},
		{
			Resource:     "Amazon Simple Storage Service",
			SubMetric:    "GET Requests",
			MonthlyLimit: decimal.NewFromInt(20000),
			Unit:         "requests",
			Category:     storage.CategoryStorage,
			Description:  "GET requests per month",
		},
		{
			Resource:     "Amazon Simple Storage Service",
			SubMetric:    "PUT Requests",
			MonthlyLimit: decimal.NewFromInt(2000),
			Unit:         "requests",
			Category:     storage.CategoryStorage,
			Description:  "PUT, COPY, POST, LIST requests per month",
		},
		{
			Resource:     "AWS Lambda",
			SubMetric:    "Requests",
			MonthlyLimit: decimal.NewFromInt(1000000),
			Unit:         "requests",
			Category:     storage.CategoryServerless,
			Description:  "Free requests per month",
		},
		{
			Resource:     "AWS Lambda",
			SubMetric:    "Duration",
			MonthlyLimit: decimal.NewFromInt(400000),
			Unit:         "GB-seconds",
			Category:     storage.CategoryServerless,
			Description:  "Compute time per month",
		},
		{
			Resource:     "Amazon Relational Database Service",
			SubMetric:    "db.t2.micro",
			MonthlyLimit: decimal.NewFromInt(750),
			Unit:         "hours",
			Category:     storage.CategoryDatabase,
			Description:  "db.t2.micro database hours",
		},
		{
			Resource:     "Amazon Relational Database Service",
			SubMetric:    "Storage",
			MonthlyLimit: decimal.NewFromInt(20),
			Unit:         "GB",
			Category:     storage.CategoryDatabase,
			Description:  "General Purpose SSD storage",
		},
		{
			Resource:     "Amazon CloudWatch",
			SubMetric:    "Metrics",
			MonthlyLimit: decimal.NewFromInt(10),
			Unit:         "metrics",
			Category:     storage.CategoryObservability,
			Description:  "Custom metrics",
		},
		{
			Resource:     "Amazon CloudWatch",
			SubMetric:    "Alarms",
			MonthlyLimit: decimal.NewFromInt(10),
			Unit:         "alarms",
			Category:     storage.CategoryObservability,
			Description:  "Alarms",
		},
		{
			Resource:     "Amazon CloudWatch",
			SubMetric:    "API Requests",
			MonthlyLimit: decimal.NewFromInt(1000000),
			Unit:         "requests",
			Category:     storage.CategoryObservability,
			Description:  "API requests",
		},
		{
			Resource:     "Amazon DynamoDB",
			SubMetric:    "Storage",
			MonthlyLimit: decimal.NewFromInt(25),
			Unit:         "GB",
			Category:     storage.CategoryDatabase,
			Description:  "Storage",
		},
		{
			Resource:     "Amazon DynamoDB",
			SubMetric:    "Read Capacity",
			MonthlyLimit: decimal.NewFromInt(25),
			Unit:         "RCU",
			Category:     storage.CategoryDatabase,
			Description:  "Read Capacity Units",
		},
		{
			Resource:     "Amazon DynamoDB",
			SubMetric:    "Write Capacity",
			MonthlyLimit: decimal.NewFromInt(25),
			Unit:         "WCU",
			Category:     storage.CategoryDatabase,
			Description:  "Write Capacity Units",
		},
		{
			Resource:     "Amazon Simple Notification Service",
			SubMetric:    "Notifications",
			MonthlyLimit: decimal.NewFromInt(1000000),
			Unit:         "notifications",
			Category:     storage.CategoryMessaging,
			Description:  "Published notifications",
		},
		{
			Resource:     "Amazon Simple Queue Service",
			SubMetric:    "Requests",
			MonthlyLimit: decimal.NewFromInt(1000000),
			Unit:         "requests",
			Category:     storage.CategoryMessaging,
			Description:  "Requests per month",
		},
	}
}
