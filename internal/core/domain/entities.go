package domain

// Role represents user role in the system
type Role string

const (
	RolePatient    Role = "PATIENT"
	RoleDoctor     Role = "DOCTOR"
	RoleNurse      Role = "NURSE"
	RolePharmacist Role = "PHARMACIST"
	RoleAdmin      Role = "ADMIN"
	RoleOwner      Role = "OWNER"
)

// StaffRoles lists every role allowed to operate the clinic consoles.
var StaffRoles = []string{
	string(RoleDoctor),
	string(RoleNurse),
	string(RolePharmacist),
	string(RoleAdmin),
	string(RoleOwner),
}

// IsStaff reports whether a role belongs to clinic staff (non-patient).
func IsStaff(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}
