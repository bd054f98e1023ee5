package api

// Stats is the dashboard metrics payload.
type Stats struct {
	TotalLeads    int `json:"totalLeads"`
	ApprovedLeads int `json:"approvedLeads"`
	InvitesSent   int `json:"invitesSent"`
}

// Profile is the authenticated user's account record.
type Profile struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Company  string `json:"company"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type createScheduleResponse struct {
	Message    string `json:"message"`
	ScheduleID string `json:"schedule_id"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type updateProfileRequest struct {
	FullName string `json:"fullName"`
	Company  string `json:"company"`
}

type sendInviteRequest struct {
	LeadID        string `json:"leadId"`
	EditedMessage string `json:"editedMessage"`
}
