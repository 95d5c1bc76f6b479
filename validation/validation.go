package validation

import (
	"net"
	"net/mail"
	"net/url"
	"strings"
	"unicode"

	"github.com/nijaru/yt-blog/errors"
)

const (
	maxUsernameLength = 150
	maxLinkLength     = 2048
)

// ValidateLink checks that link is an absolute http(s) URL that is safe to
// hand to external commands. Loopback names and literal internal addresses
// are rejected; DenyPrivateDial covers names that resolve to them.
func ValidateLink(link string) error {
	const op = "validation.ValidateLink"

	if link == "" {
		return errors.InvalidInput(op, nil, "Link is required")
	}
	if len(link) > maxLinkLength {
		return errors.InvalidInput(op, nil, "Link is too long")
	}
	if strings.HasPrefix(link, "-") {
		return errors.InvalidInput(op, nil, "Link must not start with '-'")
	}
	if strings.IndexFunc(link, unicode.IsSpace) >= 0 {
		return errors.InvalidInput(op, nil, "Link must not contain whitespace")
	}

	parsedURL, err := url.ParseRequestURI(link)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}
	if parsedURL.Host == "" {
		return errors.InvalidInput(op, nil, "URL must have a host")
	}

	host := strings.ToLower(strings.TrimSuffix(parsedURL.Hostname(), "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return errors.InvalidInput(op, nil, "URL must point to a public host")
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return errors.InvalidInput(op, nil, "URL must point to a public host")
	}

	return nil
}

// ValidateUsername accepts letters, digits and @.+-_ up to 150 characters.
func ValidateUsername(username string) error {
	const op = "validation.ValidateUsername"

	if username == "" {
		return errors.InvalidInput(op, nil, "Username is required")
	}
	if len(username) > maxUsernameLength {
		return errors.InvalidInput(op, nil, "Username is too long")
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return errors.InvalidInput(op, nil, "Username may contain only letters, digits and @/./+/-/_")
	}

	return nil
}

// ValidateEmail accepts an empty address.
func ValidateEmail(email string) error {
	const op = "validation.ValidateEmail"

	if email == "" {
		return nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.InvalidInput(op, err, "Enter a valid email address")
	}

	return nil
}

func ValidatePassword(password string) error {
	const op = "validation.ValidatePassword"

	if password == "" {
		return errors.InvalidInput(op, nil, "Password is required")
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > 72 {
		return errors.InvalidInput(op, nil, "Password is too long")
	}

	return nil
}
