package domain

// User is the profile record behind a resolved identity token.
type User struct {
	// ID is the user profile identifier; companions reference it as OwnerID.
	ID string
	// TokenIdentifier is the stable subject from the identity provider.
	TokenIdentifier string
	// Name is the display name, defaulting at creation when the client
	// provides none.
	Name string
	// TutorialsSeen lists dismissed onboarding hints, set-once per id.
	TutorialsSeen []string
}

// DefaultUserName is applied when a profile is created without a name.
const DefaultUserName = "Trainer"

// HasSeenTutorial reports whether the tutorial id was already dismissed.
func (u User) HasSeenTutorial(tutorialID string) bool {
	for _, seen := range u.TutorialsSeen {
		if seen == tutorialID {
			return true
		}
	}
	return false
}
