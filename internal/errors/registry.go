package errors

import "sort"

// ErrorTemplate defines a registered error.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://imago.dev/docs/errors/"

var registry = map[string]ErrorTemplate{
	// Configuration (E100-E119)

	"E100": {
		Category: CategoryConfig,
		Message:  "Project configuration not found",
		Detail:   "No imago.json was found in the project directory or any of its parents.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid project configuration",
		Detail:   "imago.json could not be read or is not valid JSON.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid environment configuration",
		Detail:   "environment.yaml could not be read or is not valid YAML. Each top-level key names an environment whose settings override the prod environment.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Unknown environment",
		Detail:   "The selected environment is not defined in environment.yaml.",
		DocURL:   docBase + "E103",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The server port must be between 0 and 65535.",
		DocURL:   docBase + "E104",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid cache TTL",
		Detail:   "The cache TTL must be a duration such as \"60s\" or \"5m\".",
		DocURL:   docBase + "E105",
	},

	// Command line (E120-E139)

	"E120": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server could not listen on the configured address or stopped with an error.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryCLI,
		Message:  "Static directory not found",
		Detail:   "The directory of static files configured in imago.json does not exist.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryCLI,
		Message:  "Cache store unavailable",
		Detail:   "The persistent cache file could not be opened.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryCLI,
		Message:  "Project already exists",
		Detail:   "The target directory already contains an imago.json.",
		DocURL:   docBase + "E123",
	},

	// Application bootstrap (E140-E159)

	"E140": {
		Category: CategoryBootstrap,
		Message:  "Binding failed",
		Detail:   "An object container binding of the application or one of its plugins failed.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryBootstrap,
		Message:  "Route registration failed",
		Detail:   "A route could not be added to the router, usually because its name is already taken.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryBootstrap,
		Message:  "Missing reserved route",
		Detail:   "The application must register the \"notFound\" and \"error\" routes; failed navigations are rendered by them.",
		DocURL:   docBase + "E142",
	},

	// Runtime (E160-E179)

	"E160": {
		Category: CategoryRuntime,
		Message:  "Page rendering failed",
		Detail:   "Neither the requested page nor the error page could be rendered.",
		DocURL:   docBase + "E160",
	},
}

// GetAllCodes returns all registered codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template of a code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds an error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
