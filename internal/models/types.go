package models

import "time"

// ItemRow is a questionnaire statement as stored. Category is the raw
// stored label (e.g. "Positiv", "Negativ", "Kontrolle").
type ItemRow struct {
	ID       int64  `db:"id" json:"id"`
	Text     string `db:"text" json:"text"`
	Category string `db:"category" json:"category"`
}

// ResponseRow is one survey session with its demographic answers.
// Field values are free-form strings until parsed by the services layer.
type ResponseRow struct {
	ID          string    `db:"id" json:"id"`
	Gender      string    `db:"gender" json:"gender,omitempty"`
	Age         string    `db:"age" json:"age,omitempty"`
	Experience  string    `db:"experience" json:"experience,omitempty"`
	Role        string    `db:"role" json:"role,omitempty"`
	SchoolLevel string    `db:"school_level" json:"school_level,omitempty"`
	Consent     string    `db:"consent" json:"consent,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AnswerRow is one rating of one item by one participant.
type AnswerRow struct {
	ResponseID string `db:"response_id" json:"response_id"`
	ItemID     int64  `db:"item_id" json:"item_id"`
	Value      int    `db:"value" json:"value"`
}

// ChallengeRow is an audio challenge. The audio file itself lives in
// external object storage; only its path is kept here.
type ChallengeRow struct {
	ID           string    `db:"id" json:"id"`
	AudioPath    string    `db:"audio_path" json:"audio_path"`
	DurationSec  float64   `db:"duration_sec" json:"duration_sec"`
	Status       string    `db:"status" json:"status"`
	DeviceHash   string    `db:"device_hash" json:"-"`
	CreatorRole  string    `db:"creator_role" json:"creator_role,omitempty"`
	CreatorLevel string    `db:"creator_level" json:"creator_level,omitempty"`
	Reports      int       `db:"reports" json:"reports"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ChallengeRatingRow is one device's rating of one challenge.
type ChallengeRatingRow struct {
	ChallengeID string    `db:"challenge_id" json:"challenge_id"`
	DeviceHash  string    `db:"device_hash" json:"-"`
	Impact      int       `db:"impact" json:"impact"`
	Difficulty  int       `db:"difficulty" json:"difficulty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditEntry records a state-changing action.
type AuditEntry struct {
	Time   time.Time `db:"time" json:"time"`
	Actor  string    `db:"actor" json:"actor"`
	Action string    `db:"action" json:"action"`
	Target string    `db:"target" json:"target"`
	Note   string    `db:"note" json:"note,omitempty"`
}

// ResearcherRow is an account allowed to read research outputs and moderate
// challenges.
type ResearcherRow struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	PassHash  []byte    `db:"pass_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
