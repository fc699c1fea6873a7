package models

// Settings holds the single company profile row.
type Settings struct {
	CompanyName  string `json:"companyName"`
	Logo         string `json:"logo"`
	ContactEmail string `json:"contactEmail"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	WorkingHours string `json:"workingHours"`
}

type SettingsPatch struct {
	CompanyName  *string `json:"companyName"`
	Logo         *string `json:"logo"`
	ContactEmail *string `json:"contactEmail"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	WorkingHours *string `json:"workingHours"`
}

func (s Settings) Apply(p SettingsPatch) Settings {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.CompanyName, p.CompanyName)
	set(&s.Logo, p.Logo)
	set(&s.ContactEmail, p.ContactEmail)
	set(&s.Phone, p.Phone)
	set(&s.Address, p.Address)
	set(&s.WorkingHours, p.WorkingHours)
	return s
}
