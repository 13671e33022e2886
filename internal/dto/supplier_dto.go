package dto

type SupplierRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	TaxID   string `json:"tax_id" binding:"required,max=30"`
	Phone   string `json:"phone" binding:"omitempty,max=30"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address" binding:"omitempty,max=200"`
}
