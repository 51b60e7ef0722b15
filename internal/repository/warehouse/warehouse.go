package warehouse

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/smartcity/vnweather/internal/domain"
)

// Driver selects the warehouse backend
type Driver string

const (
	DriverPgx  Driver = "pgx"
	DriverSQL  Driver = "sql"
	DriverDemo Driver = "demo"
)

// Defaults used when the corresponding option is zero
const (
	DefaultUser            = "token"
	DefaultSSLMode         = "require"
	DefaultQueryTimeout    = 60 * time.Second
	DefaultBreakerFailures = 3
	DefaultBreakerCooldown = 30 * time.Second
)

// SessionTimeZone is pinned on every warehouse connection
const SessionTimeZone = "UTC"

// Credentials are the opaque secrets needed to reach the warehouse.
// They are only ever read from the environment.
type Credentials struct {
	Host        string
	HTTPPath    string
	AccessToken string
	User        string
	SSLMode     string
}

// Complete reports whether all three secrets are present
func (c Credentials) Complete() bool {
	return c.Host != "" && c.HTTPPath != "" && c.AccessToken != ""
}

// String never prints the access token
func (c Credentials) String() string {
	token := ""
	if c.AccessToken != "" {
		token = "[REDACTED]"
	}
	return fmt.Sprintf("host=%s path=%s user=%s token=%s", c.Host, c.HTTPPath, c.user(), token)
}

func (c Credentials) user() string {
	if c.User == "" {
		return DefaultUser
	}
	return c.User
}

// DSN renders a postgres connection URL. The routing path becomes the
// database name and the access token the password. The session time zone
// is pinned so CURRENT_TIMESTAMP comparisons never follow the server default.
func (c Credentials) DSN() string {
	mode := c.SSLMode
	if mode == "" {
		mode = DefaultSSLMode
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.user(), c.AccessToken),
		Host:     c.Host,
		Path:     "/" + strings.TrimPrefix(c.HTTPPath, "/"),
		RawQuery: url.Values{"sslmode": []string{mode}, "timezone": []string{SessionTimeZone}}.Encode(),
	}
	return u.String()
}

// Options configures New
type Options struct {
	Driver          Driver
	Credentials     Credentials
	QueryTimeout    time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration

	// Observer receives per-query latency; may be nil
	Observer QueryObserver

	// Now is the demo backend's clock; nil means time.Now
	Now func() time.Time
}

// New builds the configured backend wrapped, from the outside in, with
// instrumentation, the circuit breaker and the per-query timeout.
func New(opts Options) (domain.Warehouse, error) {
	var backend domain.Warehouse
	switch opts.Driver {
	case DriverPgx, "":
		pg, err := NewPgx(opts.Credentials)
		if err != nil {
			return nil, err
		}
		backend = pg
	case DriverSQL:
		backend = NewSQL(opts.Credentials)
	case DriverDemo:
		backend = NewDemo(opts.Now)
	default:
		return nil, fmt.Errorf("warehouse: unknown driver %q", opts.Driver)
	}

	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = DefaultBreakerFailures
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}

	w := WithTimeout(backend, timeout)
	w = WithBreaker(w, string(opts.Driver), failures, cooldown)
	if opts.Observer != nil {
		w = Instrument(w, opts.Observer)
	}
	return w, nil
}
