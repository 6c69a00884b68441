package models

// MediaType represents the type of media (movie or series)
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// RequestStatus represents the availability state of a media request
type RequestStatus string

const (
	RequestStatusPending            RequestStatus = "pending"
	RequestStatusPartiallyAvailable RequestStatus = "partially_available"
	RequestStatusAvailable          RequestStatus = "available"
	RequestStatusUnavailable        RequestStatus = "unavailable"
)

// SyncStatus represents the terminal state of a sync run
type SyncStatus string

const (
	// SyncStatusSuccess means all sources were pulled successfully.
	SyncStatusSuccess SyncStatus = "success"
	// SyncStatusPartial means the media server pull succeeded but at least
	// one optional source failed. The snapshot is still usable.
	SyncStatusPartial SyncStatus = "partial"
	// SyncStatusFailed means the media server pull itself failed. The prior
	// snapshot is left untouched.
	SyncStatusFailed SyncStatus = "failed"
)

// IssueTag classifies a library item into an issue category
type IssueTag string

const (
	IssueTagOld      IssueTag = "old"
	IssueTagLarge    IssueTag = "large"
	IssueTagLanguage IssueTag = "language"
	IssueTagRequest  IssueTag = "request"
)

// LanguageFlag marks a missing audio or subtitle track on an episode
type LanguageFlag string

const (
	MissingEnAudio LanguageFlag = "missing_en_audio"
	MissingFrAudio LanguageFlag = "missing_fr_audio"
	MissingFrSubs  LanguageFlag = "missing_fr_subs"
)

// ExpiryDuration is a named whitelist/exemption lifetime
type ExpiryDuration string

const (
	ExpiryPermanent   ExpiryDuration = "permanent"
	ExpiryOneWeek     ExpiryDuration = "1week"
	ExpiryOneMonth    ExpiryDuration = "1month"
	ExpiryThreeMonths ExpiryDuration = "3months"
	ExpirySixMonths   ExpiryDuration = "6months"
	ExpiryCustom      ExpiryDuration = "custom"
)
