package renderer

import "strings"

// productionHosts are live-platform hostname patterns that themes embed
// in absolute links and asset URLs. The preview rewrites them onto the
// local origin so navigation stays inside the simulator.
var productionHosts = []string{
	"https://assets.storefront.cloud",
	"https://cdn.storefront.cloud",
	"https://www.storefront.cloud",
	"https://storefront.cloud",
}

// bootstrapScript clears client-side storage so preview sessions of
// different tenants in the same browser never bleed into each other.
const bootstrapScript = `<script data-previewkit="bootstrap">
(function () {
  try {
    window.localStorage.clear();
    window.sessionStorage.clear();
  } catch (e) { /* storage may be unavailable */ }
})();
</script>`

// postProcess rewrites production hosts to the local origin and injects
// the storage-clearing bootstrap script.
func postProcess(html, localOrigin string) string {
	if localOrigin != "" {
		for _, host := range productionHosts {
			html = strings.ReplaceAll(html, host, localOrigin)
		}
	}
	return injectBootstrap(html)
}

// injectBootstrap inserts the bootstrap script before the closing body
// tag, appending when the document has none.
func injectBootstrap(html string) string {
	if idx := strings.LastIndex(strings.ToLower(html), "</body>"); idx >= 0 {
		return html[:idx] + bootstrapScript + "\n" + html[idx:]
	}
	return html + "\n" + bootstrapScript
}
