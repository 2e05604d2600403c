package loginwall

// Signal ids shared by the built-in rules.
const (
	SignalGenericTitle      = "generic-title"
	SignalCanonicalMismatch = "canonical-mismatch"
	SignalPasswordField     = "password-field"
	SignalLoginKeywords     = "login-keywords"
	SignalMissingContent    = "missing-content-structure"
	SignalLoginPath         = "browser-login-path"
)

// defaultThreshold keeps any single weak heuristic from flagging a page on
// its own.
const defaultThreshold = 3

// DefaultRules returns the built-in site rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		instagramRule(),
		facebookRule(),
		linkedInRule(),
		xRule(),
	}
}

func instagramRule() Rule {
	content := []string{"/p/", "/reel/", "/reels/", "/tv/", "/stories/"}
	return Rule{
		ID:              "instagram",
		SiteName:        "Instagram",
		Match:           HostMatcher("instagram.com", "instagr.am"),
		Mode:            ModeThreshold,
		ThresholdWeight: defaultThreshold,
		Signals: []Signal{
			TitleSignal(SignalGenericTitle, "page title is the generic Instagram title", 1,
				"Instagram",
				"Login • Instagram",
				"Log in • Instagram",
				"Instagram Login",
				"Connexion • Instagram",
				"Iniciar sesión • Instagram",
				"Anmelden • Instagram",
				"Accedi • Instagram",
			),
			CanonicalMismatchSignal(SignalCanonicalMismatch, "canonical URL points away from the requested post", 2, content...),
			SelectorSignal(SignalPasswordField, "login form with a password field is present", 2,
				`input[type="password"]`,
				`input[name="password"]`,
				`form[action*="/accounts/login"]`,
			),
			KeywordSignal(SignalLoginKeywords, "visible text prompts to log in, sign up and recover a password", 1,
				"log in", "sign up", "forgot password",
			),
			MissingStructureSignal(SignalMissingContent, "post URL requested but no article or timestamp markup found", 1,
				content,
				[]string{"article", "time[datetime]"},
			),
			BrowserPathSignal(SignalLoginPath, "browser landed on the Instagram login path", 2,
				"/accounts/login", "/challenge",
			),
		},
	}
}

func facebookRule() Rule {
	content := []string{"/posts/", "/videos/", "/photos/", "/photo", "/story.php", "/permalink.php", "/watch/", "/reel/", "/groups/"}
	return Rule{
		ID:              "facebook",
		SiteName:        "Facebook",
		Match:           HostMatcher("facebook.com", "fb.com", "fb.watch"),
		Mode:            ModeThreshold,
		ThresholdWeight: defaultThreshold,
		Signals: []Signal{
			TitleSignal(SignalGenericTitle, "page title is the generic Facebook title", 1,
				"Facebook",
				"Log into Facebook",
				"Log in to Facebook",
				"Facebook - log in or sign up",
				"Facebook – log in or sign up",
				"Facebook – Connexion ou inscription",
			),
			CanonicalMismatchSignal(SignalCanonicalMismatch, "canonical URL points away from the requested content", 2, content...),
			SelectorSignal(SignalPasswordField, "login form with a password field is present", 2,
				`input[type="password"]`,
				`input[name="pass"]`,
				`form#login_form`,
				`form[action*="/login"]`,
			),
			KeywordSignal(SignalLoginKeywords, "visible text prompts to log in, create an account and recover a password", 1,
				"log in", "create new account", "forgot",
			),
			MissingStructureSignal(SignalMissingContent, "content URL requested but no post markup found", 1,
				content,
				[]string{`[role="article"]`, "article", "abbr[data-utime]", "time"},
			),
			BrowserPathSignal(SignalLoginPath, "browser landed on the Facebook login or checkpoint path", 2,
				"/login", "/checkpoint",
			),
		},
	}
}

func linkedInRule() Rule {
	content := []string{"/posts/", "/pulse/", "/feed/update/", "/jobs/view/", "/events/"}
	return Rule{
		ID:              "linkedin",
		SiteName:        "LinkedIn",
		Match:           HostMatcher("linkedin.com", "lnkd.in"),
		Mode:            ModeThreshold,
		ThresholdWeight: defaultThreshold,
		Signals: []Signal{
			TitleSignal(SignalGenericTitle, "page title is the generic LinkedIn sign-in title", 1,
				"LinkedIn",
				"LinkedIn Login, Sign in | LinkedIn",
				"Sign In | LinkedIn",
				"Sign Up | LinkedIn",
				"LinkedIn: Log In or Sign Up",
			),
			CanonicalMismatchSignal(SignalCanonicalMismatch, "canonical URL points away from the requested content", 2, content...),
			SelectorSignal(SignalPasswordField, "sign-in form with a password field is present", 2,
				`input[type="password"]`,
				`input#session_password`,
				`form[action*="/uas/login"]`,
				`form[action*="/checkpoint/lg"]`,
			),
			KeywordSignal(SignalLoginKeywords, "visible text prompts to sign in, join and recover a password", 1,
				"sign in", "join now", "forgot password",
			),
			MissingStructureSignal(SignalMissingContent, "content URL requested but no article markup found", 1,
				content,
				[]string{"article", "main time", `[data-test-id="main-feed-activity-card"]`},
			),
			BrowserPathSignal(SignalLoginPath, "browser landed on the LinkedIn authwall or login path", 2,
				"/authwall", "/login", "/uas/login", "/checkpoint",
			),
		},
	}
}

func xRule() Rule {
	content := []string{"/status/", "/i/web/status/"}
	return Rule{
		ID:              "x",
		SiteName:        "X",
		Match:           HostMatcher("x.com", "twitter.com"),
		Mode:            ModeThreshold,
		ThresholdWeight: defaultThreshold,
		Signals: []Signal{
			TitleSignal(SignalGenericTitle, "page title is the generic X title", 1,
				"X",
				"Twitter",
				"Log in to X / X",
				"Log in to Twitter / Twitter",
				"Login on X",
				"Login on Twitter",
			),
			CanonicalMismatchSignal(SignalCanonicalMismatch, "canonical URL points away from the requested post", 2, content...),
			SelectorSignal(SignalPasswordField, "login form with a password field is present", 2,
				`input[type="password"]`,
				`input[name="password"]`,
				`input[autocomplete="current-password"]`,
			),
			KeywordSignal(SignalLoginKeywords, "visible text prompts to sign in, sign up and recover a password", 1,
				"sign in", "sign up", "forgot password",
			),
			MissingStructureSignal(SignalMissingContent, "post URL requested but no tweet markup found", 1,
				content,
				[]string{`article[data-testid="tweet"]`, "article", "time[datetime]"},
			),
			BrowserPathSignal(SignalLoginPath, "browser landed on the X login flow", 2,
				"/i/flow/login", "/login", "/i/flow/signup",
			),
		},
	}
}
