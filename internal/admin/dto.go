// AngelaMos | 2026
// dto.go

package admin

import "time"

type StatsResponse struct {
	TotalUsers              int                `json:"total_users"`
	ActiveUsers             int                `json:"active_users"`
	VerifiedUsers           int                `json:"verified_users"`
	UsersByRole             map[string]int     `json:"users_by_role"`
	UsersByTier             map[string]int     `json:"users_by_tier"`
	TotalPDFs               int                `json:"total_pdfs"`
	TotalChunks             int                `json:"total_chunks"`
	TotalQuestionsGenerated int                `json:"total_questions_generated"`
	RecentActivity          []ActivityResponse `json:"recent_activity"`
}

type ActivityResponse struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

func ToStatsResponse(s *Stats) StatsResponse {
	activity := make([]ActivityResponse, 0, len(s.RecentActivity))
	for _, a := range s.RecentActivity {
		activity = append(activity, ActivityResponse(a))
	}

	return StatsResponse{
		TotalUsers:              s.TotalUsers,
		ActiveUsers:             s.ActiveUsers,
		VerifiedUsers:           s.VerifiedUsers,
		UsersByRole:             s.UsersByRole,
		UsersByTier:             s.UsersByTier,
		TotalPDFs:               s.TotalPDFs,
		TotalChunks:             s.TotalChunks,
		TotalQuestionsGenerated: s.TotalQuestionsGenerated,
		RecentActivity:          activity,
	}
}

type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	PDFCount   int       `json:"pdf_count"`

	SubscriptionTier string `json:"subscription_tier"`
	QuestionCount    int    `json:"question_count"`
}

func ToUserResponseList(rows []UserRow) []UserResponse {
	out := make([]UserResponse, 0, len(rows))
	for _, r := range rows {
		resp := UserResponse{
			ID:         r.ID,
			Email:      r.Email,
			Username:   r.Username,
			Role:       r.Role,
			IsActive:   r.IsActive,
			IsVerified: r.IsVerified,
			CreatedAt:  r.CreatedAt,
			PDFCount:   r.PDFCount,

			SubscriptionTier: r.SubscriptionTier,
			QuestionCount:    r.QuestionCount,
		}
		if r.FullName != nil {
			resp.FullName = *r.FullName
		}
		out = append(out, resp)
	}
	return out
}

type DocumentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	UserEmail  string    `json:"user_email"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	TotalPages int       `json:"total_pages"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToDocumentResponseList(rows []DocumentRow) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, DocumentResponse(r))
	}
	return out
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Storage  StorageStatus  `json:"storage"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type StorageStatus struct {
	Healthy bool `json:"healthy"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
