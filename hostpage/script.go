package hostpage

import (
	"context"
	"encoding/json"
	"fmt"
)

// bridgeScriptTemplate exposes window.__sqrBridge.post so scripts on the
// page can reach the bridge ingress with this window's token.
const bridgeScriptTemplate = `(() => {
	const cfg = %s;
	Object.defineProperty(window, '__sqrBridge', {
		configurable: false,
		value: Object.freeze({
			post(type, fields) {
				return fetch(cfg.endpoint, {
					method: 'POST',
					headers: { 'Content-Type': 'application/json' },
					body: JSON.stringify(Object.assign({}, fields || {}, { type, source: cfg.token })),
				}).catch(() => {});
			},
		}),
	});
})();`

// BridgeScript renders the page script for endpoint and token.
func BridgeScript(endpoint, token string) string {
	cfg, _ := json.Marshal(map[string]string{"endpoint": endpoint, "token": token})
	return fmt.Sprintf(bridgeScriptTemplate, cfg)
}

// InjectBridge installs the bridge script on every document p loads.
func InjectBridge(ctx context.Context, p *Page, endpoint, token string) error {
	if _, err := p.with(ctx).EvalOnNewDocument(BridgeScript(endpoint, token)); err != nil {
		return fmt.Errorf("failed to inject bridge script: %w", err)
	}
	return nil
}
