package analytics

// Event names use snake_case to line up with the mobile app.
const (
	EventPageViewed         = "page_viewed"
	EventUserSignedUp       = "user_signed_up"
	EventUserSignedIn       = "user_signed_in"
	EventUserSignedOut      = "user_signed_out"
	EventBlogPostViewed     = "blog_post_viewed"
	EventForumTopicViewed   = "forum_topic_viewed"
	EventAppDownloadClicked = "app_download_clicked"
	EventCTAClicked         = "cta_clicked"
	EventCookieConsentGiven = "cookie_consent_given"
)

var knownEvents = map[string]bool{
	EventPageViewed:         true,
	EventUserSignedUp:       true,
	EventUserSignedIn:       true,
	EventUserSignedOut:      true,
	EventBlogPostViewed:     true,
	EventForumTopicViewed:   true,
	EventAppDownloadClicked: true,
	EventCTAClicked:         true,
	EventCookieConsentGiven: true,
}

// Known reports whether name is one of the tracked event types.
func Known(name string) bool { return knownEvents[name] }

type AuthMethod string

const (
	AuthEmail  AuthMethod = "email"
	AuthGoogle AuthMethod = "google"
	AuthApple  AuthMethod = "apple"
)

type AppStore string

const (
	AppStoreIOS     AppStore = "app_store"
	AppStoreAndroid AppStore = "play_store"
)

// Event is one tracked action. Properties are sent as-is, plus the
// platform discriminator added by the Tracker.
type Event struct {
	Name       string
	Properties map[string]interface{}
}

func PageViewed(path, title string) Event {
	return Event{Name: EventPageViewed, Properties: map[string]interface{}{
		"page_path":  path,
		"page_title": title,
	}}
}

// UserSignedUp also records the platform the account was created on.
func UserSignedUp(method AuthMethod, platform string) Event {
	return Event{Name: EventUserSignedUp, Properties: map[string]interface{}{
		"auth_method":     string(method),
		"signup_platform": platform,
	}}
}

func UserSignedIn(method AuthMethod) Event {
	return Event{Name: EventUserSignedIn, Properties: map[string]interface{}{
		"auth_method": string(method),
	}}
}

func UserSignedOut() Event {
	return Event{Name: EventUserSignedOut, Properties: map[string]interface{}{}}
}

func BlogPostViewed(slug, title string) Event {
	return Event{Name: EventBlogPostViewed, Properties: map[string]interface{}{
		"post_slug":  slug,
		"post_title": title,
	}}
}

func ForumTopicViewed(topicID, title string) Event {
	return Event{Name: EventForumTopicViewed, Properties: map[string]interface{}{
		"topic_id":    topicID,
		"topic_title": title,
	}}
}

func AppDownloadClicked(store AppStore, source string) Event {
	return Event{Name: EventAppDownloadClicked, Properties: map[string]interface{}{
		"store":  string(store),
		"source": source,
	}}
}

func CTAClicked(name, location string) Event {
	return Event{Name: EventCTAClicked, Properties: map[string]interface{}{
		"cta_name":     name,
		"cta_location": location,
	}}
}

// CookieConsentGiven returns false for a declined consent: nothing can be
// tracked for a visitor who said no.
func CookieConsentGiven(accepted bool) (Event, bool) {
	if !accepted {
		return Event{}, false
	}

	return Event{Name: EventCookieConsentGiven, Properties: map[string]interface{}{
		"consent": "accepted",
	}}, true
}
