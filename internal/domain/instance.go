package domain

// InstanceRole names the function an outbound messaging channel serves.
type InstanceRole string

const (
	RoleSales         InstanceRole = "sales"
	RoleNotifications InstanceRole = "notifications"
	RoleSupport       InstanceRole = "support"
	RoleBackup        InstanceRole = "backup"
)

// InstanceStatus is the connection state of a messaging instance.
type InstanceStatus string

const (
	InstanceConnected    InstanceStatus = "connected"
	InstanceMaintenance  InstanceStatus = "maintenance"
	InstanceDisconnected InstanceStatus = "disconnected"
)

// PlatformOwner is the owner ID for shared platform instances.
const PlatformOwner = "platform"

// MessagingInstance is an outbound messaging channel. Status is written only
// by the failure-reporting path; the scheduler and router read it.
type MessagingInstance struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Role         InstanceRole   `json:"role"`
	Status       InstanceStatus `json:"status"`
	OwnerID      string         `json:"owner_id"`
	IsBackup     bool           `json:"is_backup"`
	BackupForID  string         `json:"backup_for_id,omitempty"`
	PhoneNumber  string         `json:"phone_number"`
	HealthScore  int            `json:"health_score"`
	Capabilities []InstanceRole `json:"capabilities"`
}

// HasCapability reports whether the instance can serve the given role.
func (m *MessagingInstance) HasCapability(role InstanceRole) bool {
	for _, c := range m.Capabilities {
		if c == role {
			return true
		}
	}
	return false
}
