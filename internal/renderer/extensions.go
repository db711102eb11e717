package renderer

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/storefront-preview/previewkit/internal/themes"
)

// bindExtensions injects the domain extensions into a render's variable
// context as closures over the request state. The extension set is fixed
// at build time; only the state binding happens per request.
func bindExtensions(s *renderState) pongo2.Context {
	return pongo2.Context{
		"money":     func(amount *pongo2.Value) *pongo2.Value { return moneyExt(s, amount) },
		"trans":     func(key *pongo2.Value) *pongo2.Value { return transExt(s, key) },
		"t":         func(key *pongo2.Value) *pongo2.Value { return transExt(s, key) },
		"asset":     func(ref *pongo2.Value) *pongo2.Value { return assetExt(s, ref) },
		"hook":      func(name *pongo2.Value) *pongo2.Value { return hookExt(s, name) },
		"component": func(ref *pongo2.Value) *pongo2.Value { return componentExt(s, ref) },
	}
}

// moneyExt formats an amount in the current request's tenant currency.
func moneyExt(s *renderState, amount *pongo2.Value) *pongo2.Value {
	return pongo2.AsValue(formatMoney(amount.Float(), s.rc.Store.Currency, s.rc.Store.Language))
}

// formatMoney renders an amount with its currency symbol, localized to
// the tenant language. Unknown currency codes degrade to "amount CODE".
func formatMoney(amount float64, code, lang string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}

	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}

// transExt resolves a translation key against the request's table.
func transExt(s *renderState, key *pongo2.Value) *pongo2.Value {
	return pongo2.AsValue(s.translate(key.String()))
}

// assetExt rewrites an asset reference for the local preview origin.
func assetExt(s *renderState, ref *pongo2.Value) *pongo2.Value {
	return pongo2.AsValue(s.assetURL(ref.String()))
}

// hookExt inlines the content registered at a named injection point.
func hookExt(s *renderState, name *pongo2.Value) *pongo2.Value {
	return pongo2.AsSafeValue(s.hookContent(name.String()))
}

// componentExt locates and renders a component sub-template, passing the
// parent's merged render variables through plus the component's own data.
// Accepts a path string, a component object, or a list of either.
func componentExt(s *renderState, ref *pongo2.Value) *pongo2.Value {
	html, err := renderComponentRef(s, ref.Interface())
	if err != nil {
		// A broken component must not take the page down with it.
		return pongo2.AsSafeValue("<!-- component error: " + err.Error() + " -->")
	}
	return pongo2.AsSafeValue(html)
}

func renderComponentRef(s *renderState, ref interface{}) (string, error) {
	switch v := ref.(type) {
	case string:
		return renderComponent(s, v, nil)
	case map[string]interface{}:
		path, _ := v["path"].(string)
		if path == "" {
			path, _ = v["name"].(string)
		}
		data, _ := v["fields"].(map[string]interface{})
		if data == nil {
			data, _ = v["data"].(map[string]interface{})
		}
		return renderComponent(s, path, data)
	case []interface{}:
		var out string
		for _, item := range v {
			html, err := renderComponentRef(s, item)
			if err != nil {
				return "", err
			}
			out += html
		}
		return out, nil
	default:
		return "", fmt.Errorf("unsupported component reference %T", ref)
	}
}

// renderComponent renders one component template with the parent's
// variables plus the explicit component data.
func renderComponent(s *renderState, componentPath string, data map[string]interface{}) (string, error) {
	if componentPath == "" {
		return "", fmt.Errorf("empty component path")
	}
	if s.depth >= maxComponentDepth {
		return "", fmt.Errorf("component recursion limit reached at %q", componentPath)
	}

	raw, err := s.provider.ReadTemplate(s.themeFolder, themes.ComponentTemplatePath(componentPath))
	if err != nil {
		return "", err
	}

	tpl, err := pongo2.FromString(string(raw))
	if err != nil {
		return "", err
	}

	vars := make(pongo2.Context, len(s.vars)+len(data)+2)
	for k, v := range s.vars {
		vars[k] = v
	}
	if data != nil {
		vars["fields"] = data
	}

	s.depth++
	defer func() { s.depth-- }()

	out, execErr := tpl.Execute(vars)
	if execErr != nil {
		return "", execErr
	}
	return out, nil
}
