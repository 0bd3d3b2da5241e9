package models

// Course links content to the products that sell it. A course is granted
// either by enrolling in its own product or in any program product that
// bundles it.
type Course struct {
	ID         string   `bson:"id" json:"id"`
	TenantID   string   `bson:"tenant_id" json:"tenantId"`
	ProductID  string   `bson:"product_id" json:"productId"`
	ProgramIDs []string `bson:"program_ids,omitempty" json:"programIds,omitempty"`
	Title      string   `bson:"title" json:"title"`
}

// GrantingProducts returns every product whose enrollment grants this course.
func (c *Course) GrantingProducts() []string {
	products := make([]string, 0, len(c.ProgramIDs)+1)
	products = append(products, c.ProductID)
	products = append(products, c.ProgramIDs...)
	return products
}
