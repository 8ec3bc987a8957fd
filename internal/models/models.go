package models

// Values the backend uses for the enum-like string fields.
const (
	HostedInternal = "INT"
	HostedExternal = "EXT"

	FlagYes = "YES"
	FlagNo  = "NO"

	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// NormalizeStatus maps the short codes some records carry ("A", "I") to the
// full status names.
func NormalizeStatus(status string) string {
	switch status {
	case "A":
		return StatusActive
	case "I":
		return StatusInactive
	default:
		return status
	}
}

type SoftwareAsset struct {
	ID             int64    `json:"id"`
	Name           string   `json:"software_name"`
	Description    string   `json:"software_description"`
	Version        string   `json:"software_version,omitempty"`
	YearsOfUse     *int     `json:"software_years_of_use,omitempty"`
	LastUpdated    string   `json:"software_last_updated"`
	ExpirationDate string   `json:"software_expiration_date"`
	Hosted         string   `json:"software_is_hosted"`
	TechSupported  string   `json:"software_is_tech_supported"`
	CloudBased     string   `json:"software_is_cloud_based,omitempty"`
	Maintenance    string   `json:"software_maintenance_support"`
	Status         string   `json:"software_operational_status"`
	Licenses       int      `json:"software_number_of_licenses"`
	AnnualAmount   *float64 `json:"software_annual_amount,omitempty"`
	Comments       string   `json:"software_comments,omitempty"`

	Departments          []Department         `json:"software_department"`
	Divisions            []Division           `json:"software_divisions_using"`
	Vendors              []Vendor             `json:"software_vendor"`
	GLAccounts           []GLAccount          `json:"software_gl_accounts"`
	SoftwareDependencies []SoftwareDependency `json:"software_to_operate"`
	HardwareDependencies []HardwareDependency `json:"hardware_to_operate"`
	Contacts             []ContactPerson      `json:"software_department_contact_people"`
}

// Clone returns a copy that shares no slices with a.
func (a SoftwareAsset) Clone() SoftwareAsset {
	c := a
	c.Departments = append([]Department(nil), a.Departments...)
	c.Divisions = append([]Division(nil), a.Divisions...)
	c.Vendors = append([]Vendor(nil), a.Vendors...)
	c.GLAccounts = append([]GLAccount(nil), a.GLAccounts...)
	c.SoftwareDependencies = append([]SoftwareDependency(nil), a.SoftwareDependencies...)
	c.HardwareDependencies = append([]HardwareDependency(nil), a.HardwareDependencies...)
	c.Contacts = append([]ContactPerson(nil), a.Contacts...)
	if a.YearsOfUse != nil {
		v := *a.YearsOfUse
		c.YearsOfUse = &v
	}
	if a.AnnualAmount != nil {
		v := *a.AnnualAmount
		c.AnnualAmount = &v
	}
	return c
}

// WithoutSentinels drops association entries that were never resolved to a
// real reference.
func (a SoftwareAsset) WithoutSentinels() SoftwareAsset {
	c := a.Clone()
	c.Departments = ValidRefs(c.Departments)
	c.Divisions = ValidRefs(c.Divisions)
	c.Vendors = ValidRefs(c.Vendors)
	c.GLAccounts = ValidRefs(c.GLAccounts)
	c.SoftwareDependencies = ValidRefs(c.SoftwareDependencies)
	c.HardwareDependencies = ValidRefs(c.HardwareDependencies)

	contacts := make([]ContactPerson, 0, len(c.Contacts))
	for _, p := range c.Contacts {
		if p.Valid() {
			contacts = append(contacts, p)
		}
	}
	c.Contacts = contacts
	return c
}

type ContactPerson struct {
	ID       int64      `json:"id"`
	Name     string     `json:"contact_name"`
	LastName string     `json:"contact_lastname"`
	Email    string     `json:"contact_email,omitempty"`
	Phone    FlexString `json:"contact_phone_number,omitempty"`
	PublicID string     `json:"public_id,omitempty"`
}

func (p ContactPerson) Valid() bool {
	return p.ID != SentinelID && p.Name != ""
}

func (p ContactPerson) FullName() string {
	if p.LastName == "" {
		return p.Name
	}
	return p.Name + " " + p.LastName
}

type Comment struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	UserName     string `json:"user_name"`
	SoftwareID   int64  `json:"software_id"`
	Content      string `json:"content"`
	Satisfaction int    `json:"satisfaction_rate"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// User is the identity decoded from the session token.
type User struct {
	ID        int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

type Contract struct {
	ID         int64  `json:"id"`
	SoftwareID int64  `json:"software_id"`
	Name       string `json:"name"`
	UserID     int64  `json:"user_id"`
	UploadedAt string `json:"uploaded_at"`
	Size       int64  `json:"size"`
	URL        string `json:"contract_url"`
}

type PricedSoftware struct {
	Name         string  `json:"software_name"`
	AnnualAmount float64 `json:"software_annual_amount"`
}

type RatedSoftware struct {
	Name         string  `json:"software__software_name"`
	Satisfaction float64 `json:"satisfaction_rate"`
}

type VendorProducts struct {
	Name     string `json:"name"`
	Products int    `json:"products"`
}

// Analytics mirrors the /analytics payload.
type Analytics struct {
	TotalSpending       float64          `json:"totalSpending"`
	AverageSatisfaction float64          `json:"averageSatisfaction"`
	ActiveSoftware      int              `json:"activeSoftware"`
	TotalSoftware       int              `json:"totalSoftware"`
	ExpiringSoon        int              `json:"expiringSoon"`
	MostExpensive       PricedSoftware   `json:"mostExpensive"`
	Cheapest            PricedSoftware   `json:"cheapest"`
	AverageCost         float64          `json:"averageCost"`
	HighestRated        RatedSoftware    `json:"highestRated"`
	LowestRated         RatedSoftware    `json:"lowestRated"`
	Vendors             []VendorProducts `json:"vendors"`
	ActiveLicenses      int              `json:"activeLicenses"`
	InactiveLicenses    int              `json:"inactiveLicenses"`
}
