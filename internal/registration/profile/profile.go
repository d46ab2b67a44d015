// Package profile holds the role-specific business profile aggregate and the
// invariants of its export-product entry list.
package profile

import (
	"spiceportal/internal/domain"
	dErrors "spiceportal/pkg/domainerrors"
)

const maxDetailsLen = 500

// ExportProductEntry is one product line in a business profile.
type ExportProductEntry struct {
	ProductID   string `json:"productId"`
	IsRaw       bool   `json:"isRaw"`
	IsProcessed bool   `json:"isProcessed"`
	Details     string `json:"details"`
}

// BusinessProfile is the role-specific aggregate submitted after role
// selection. Scalar attributes vary little between roles; the product list
// carries the structure.
//
// Invariants:
//   - Products always has at least one entry
//   - No two entries share a ProductID
//   - At least one entry carries a non-empty ProductID before submission
type BusinessProfile struct {
	UserID         string               `json:"userId"`
	Role           domain.BusinessRole  `json:"role"`
	BusinessName   string               `json:"businessName"`
	BusinessRegNo  string               `json:"businessRegNo"`
	Address        string               `json:"address"`
	Certifications []string             `json:"certifications"`
	Products       []ExportProductEntry `json:"products"`
}

// New creates a profile with the default single empty product entry.
func New(userID string, role domain.BusinessRole) *BusinessProfile {
	return &BusinessProfile{
		UserID:   userID,
		Role:     role,
		Products: []ExportProductEntry{{}},
	}
}

// AddEntry appends an empty product entry.
func (p *BusinessProfile) AddEntry() {
	p.Products = append(p.Products, ExportProductEntry{})
}

// UpdateEntry replaces the entry at index i. Choosing a ProductID already
// used by another entry is rejected.
func (p *BusinessProfile) UpdateEntry(i int, entry ExportProductEntry) error {
	if i < 0 || i >= len(p.Products) {
		return dErrors.Newf(dErrors.CodeBadRequest, "no product entry at index %d", i)
	}
	if len(entry.Details) > maxDetailsLen {
		return dErrors.Newf(dErrors.CodeBadRequest, "product details must be %d characters or less", maxDetailsLen)
	}
	if entry.ProductID != "" {
		for j, other := range p.Products {
			if j != i && other.ProductID == entry.ProductID {
				return dErrors.New(dErrors.CodeConflict, "product already selected in another entry")
			}
		}
	}
	p.Products[i] = entry
	return nil
}

// RemoveEntry deletes the entry at index i, preserving order. Removing the
// sole remaining entry is a no-op: the list never drops below one entry.
func (p *BusinessProfile) RemoveEntry(i int) {
	if len(p.Products) <= 1 || i < 0 || i >= len(p.Products) {
		return
	}
	p.Products = append(p.Products[:i], p.Products[i+1:]...)
}

// AvailableProducts filters catalog down to the product IDs selectable for
// entry i: everything not already claimed by another entry.
func (p *BusinessProfile) AvailableProducts(i int, catalog []string) []string {
	used := make(map[string]bool, len(p.Products))
	for j, entry := range p.Products {
		if j != i && entry.ProductID != "" {
			used[entry.ProductID] = true
		}
	}
	available := make([]string, 0, len(catalog))
	for _, id := range catalog {
		if !used[id] {
			available = append(available, id)
		}
	}
	return available
}

// Validate checks submission readiness.
func (p *BusinessProfile) Validate() error {
	if p.UserID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "profile is not linked to a registration")
	}
	if !p.Role.Valid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unsupported role")
	}

	hasProduct := false
	seen := make(map[string]bool, len(p.Products))
	for _, entry := range p.Products {
		if entry.ProductID == "" {
			continue
		}
		if seen[entry.ProductID] {
			return dErrors.New(dErrors.CodeInvariantViolation, "duplicate product entries")
		}
		seen[entry.ProductID] = true
		hasProduct = true
		if len(entry.Details) > maxDetailsLen {
			return dErrors.Newf(dErrors.CodeBadRequest, "product details must be %d characters or less", maxDetailsLen)
		}
	}
	if !hasProduct {
		return dErrors.New(dErrors.CodeBadRequest, "select at least one product")
	}
	return nil
}

// Clone returns a deep copy, used to retain the original snapshot that edit
// diffs are computed against.
func (p *BusinessProfile) Clone() *BusinessProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Certifications = append([]string(nil), p.Certifications...)
	cp.Products = append([]ExportProductEntry(nil), p.Products...)
	return &cp
}
