package domain

// RegistrationType distinguishes applicants who are starting a spice business
// from those registering an existing one. The wire value "have-business" is
// what the registration form sends for an existing business.
type RegistrationType string

const (
	RegistrationStarting RegistrationType = "starting-business"
	RegistrationExisting RegistrationType = "have-business"
)

// BusinessStatus is the derived classification persisted with basic info.
type BusinessStatus string

const (
	BusinessStarting BusinessStatus = "STARTING"
	BusinessExisting BusinessStatus = "EXISTING"
)

// BusinessStatusFor derives the persisted status from the selected
// registration type: EXISTING only for an already-running business.
func BusinessStatusFor(t RegistrationType) BusinessStatus {
	if t == RegistrationExisting {
		return BusinessExisting
	}
	return BusinessStarting
}

// BusinessRole is the applicant's role in the spice trade.
type BusinessRole string

const (
	RoleEntrepreneur BusinessRole = "entrepreneur"
	RoleExporter     BusinessRole = "exporter"
	RoleIntermediary BusinessRole = "intermediary"
)

func (r BusinessRole) Valid() bool {
	switch r {
	case RoleEntrepreneur, RoleExporter, RoleIntermediary:
		return true
	}
	return false
}

// SerialParts is the three-part business serial number. A registration may
// instead carry a single flat serial value.
type SerialParts struct {
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
	Number string `json:"number"`
}

func (p SerialParts) Complete() bool {
	return p.Prefix != "" && p.Suffix != "" && p.Number != ""
}

// String concatenates the parts in their canonical prefix/suffix/number form.
func (p SerialParts) String() string {
	return p.Prefix + "/" + p.Suffix + "/" + p.Number
}

// BasicInfo is the assembled first-step record sent to the upstream backend.
type BasicInfo struct {
	FullName       string         `json:"fullName"`
	MobileNumber   string         `json:"mobileNumber"`
	NIC            string         `json:"nic"`
	Title          string         `json:"title"`
	Address        string         `json:"address"`
	SerialNumber   string         `json:"serialNumber"`
	BusinessStatus BusinessStatus `json:"businessStatus"`
	Role           BusinessRole   `json:"role"`
}
