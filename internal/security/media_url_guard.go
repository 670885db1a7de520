package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// ErrUnsafeURL はメディアURLが保存・取得に適さない場合に返される。
var ErrUnsafeURL = errors.New("unsafe media URL")

// maxMediaURLLength はメディアURLとして保存できる最大長。
const maxMediaURLLength = 2048

var mediaSchemes = []string{"http", "https"}

// 内部ネットワーク宛てとみなすアドレス範囲。
var internalPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // CGNAT
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // クラウドメタデータを含む
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// 内部名前解決でしか意味を持たないホスト名の接尾辞。
var internalHostSuffixes = []string{".localhost", ".local", ".internal"}

// MediaURLGuard は運動・ルーティンのメディアURL（画像・動画）を検証する。
// ValidateURLは保存前の静的検証、NewSafeClientは到達確認用のクライアントを提供する。
type MediaURLGuard struct {
	ports []int
}

// NewMediaURLGuard はMediaURLGuardを生成する。到達確認は80/443番ポートのみ許可する。
func NewMediaURLGuard() *MediaURLGuard {
	return &MediaURLGuard{ports: []int{80, 443}}
}

// ValidateURL はDNS解決を伴わずにURLを検証する。
// 名前解決後のアドレスはNewSafeClientのDialerで検証される。
func (g *MediaURLGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrUnsafeURL)
	}
	if len(rawURL) > maxMediaURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrUnsafeURL, maxMediaURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsafeURL, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in URL", ErrUnsafeURL)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeURL)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isInternalAddr(addr) {
			return fmt.Errorf("%w: internal address %s", ErrUnsafeURL, addr)
		}
		return nil
	}

	if isInternalHost(host) {
		return fmt.Errorf("%w: internal host %s", ErrUnsafeURL, host)
	}
	return nil
}

// NewSafeClient はプライベート・ループバック・リンクローカル宛ての接続を
// Dialerレベルで拒否するHTTPクライアントを返す。
func (g *MediaURLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(mediaSchemes...).
		SetAllowedPorts(g.ports...).
		Build()

	return safeurl.Client(config).Client
}

func isInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() {
		return true
	}
	for _, p := range internalPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isInternalHost(host string) bool {
	if host == "localhost" {
		return true
	}
	for _, suffix := range internalHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	// ドットを含まないホスト名は社内DNSの短縮名とみなす
	return !strings.Contains(host, ".")
}
