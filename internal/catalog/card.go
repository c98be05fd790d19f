package catalog

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/BaSui01/agentmarket/agent/discovery"
)

// MaxCardSkills caps the skills listed on a card.
const MaxCardSkills = 3

var defaultModes = []string{"application/json", "text/plain"}

// AgentCard is the agent2agent discovery document for a catalog record.
type AgentCard struct {
	Name                              string                    `json:"name"`
	Description                       string                    `json:"description"`
	URL                               string                    `json:"url"`
	Provider                          CardProvider              `json:"provider"`
	IconURL                           string                    `json:"iconUrl"`
	Version                           string                    `json:"version"`
	DocumentationURL                  string                    `json:"documentationUrl"`
	Capabilities                      CardCapabilities          `json:"capabilities"`
	SecuritySchemes                   map[string]SecurityScheme `json:"securitySchemes"`
	Security                          []map[string][]string     `json:"security"`
	DefaultInputModes                 []string                  `json:"defaultInputModes"`
	DefaultOutputModes                []string                  `json:"defaultOutputModes"`
	Skills                            []CardSkill               `json:"skills"`
	SupportsAuthenticatedExtendedCard bool                      `json:"supportsAuthenticatedExtendedCard"`
	Pricing                           CardPricing               `json:"pricing"`
	Metadata                          CardMetadata              `json:"metadata"`
}

// CardProvider names the organization behind an agent.
type CardProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url"`
}

// CardCapabilities lists protocol features the agent supports.
type CardCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// SecurityScheme describes one authentication scheme.
type SecurityScheme struct {
	Type             string `json:"type"`
	OpenIDConnectURL string `json:"openIdConnectUrl,omitempty"`
}

// CardSkill is one advertised skill.
type CardSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples"`
	InputModes  []string `json:"inputModes"`
	OutputModes []string `json:"outputModes"`
}

// CardPricing is the price block of a card.
type CardPricing struct {
	Model          string  `json:"model"`
	CostPerRequest float64 `json:"cost_per_request"`
	Currency       string  `json:"currency"`
}

// CardMetadata carries catalog fields that are not part of the protocol.
type CardMetadata struct {
	Karma            int       `json:"karma"`
	CapabilitiesList []string  `json:"capabilities_list"`
	CreatedAt        time.Time `json:"created_at"`
	LastUpdated      time.Time `json:"last_updated"`
}

type skillTemplate struct {
	Name        string
	Description string
	Tags        []string
	Examples    []string
}

// skillTemplates maps well-known capability tags to skill descriptions.
var skillTemplates = map[string]skillTemplate{
	"data_analysis": {
		Name:        "Data Analysis & Insights",
		Description: "Performs comprehensive data analysis, statistical modeling, and generates actionable business insights from complex datasets.",
		Tags:        []string{"analytics", "statistics", "data", "insights", "reporting"},
		Examples: []string{
			"Analyze sales data to identify trends and forecast future performance",
			"Perform customer segmentation analysis based on behavioral data",
		},
	},
	"sql": {
		Name:        "SQL Database Operations",
		Description: "Executes complex SQL queries, optimizes database performance, and manages data extraction and transformation tasks.",
		Tags:        []string{"database", "sql", "queries", "data extraction", "optimization"},
		Examples: []string{
			"Extract customer purchase history from multiple joined tables",
			"Optimize slow-running queries for better performance",
		},
	},
	"content_creation": {
		Name:        "Content Creation & Writing",
		Description: "Creates engaging, high-quality content for various platforms including blogs, social media, marketing materials, and documentation.",
		Tags:        []string{"writing", "content", "marketing", "copywriting", "creative"},
		Examples: []string{
			"Write a compelling blog post about emerging technology trends",
			"Create engaging social media content for a product launch campaign",
		},
	},
	"web_scraping": {
		Name:        "Web Data Extraction",
		Description: "Extracts structured and unstructured data from websites, handles dynamic content, and manages large-scale data collection operations.",
		Tags:        []string{"scraping", "data collection", "automation", "web", "extraction"},
		Examples: []string{
			"Extract product prices and reviews from e-commerce websites",
			"Collect real estate listings data from multiple property websites",
		},
	},
	"image_recognition": {
		Name:        "Computer Vision & Image Analysis",
		Description: "Analyzes images and videos to detect objects, recognize faces, classify scenes, and extract visual information using deep learning models.",
		Tags:        []string{"computer vision", "image processing", "object detection", "AI", "machine learning"},
		Examples: []string{
			"Identify and classify objects in retail inventory photos",
			"Analyze medical images to detect anomalies and assist diagnosis",
		},
	},
	"code_generation": {
		Name:        "Code Generation & Development",
		Description: "Generates high-quality code in multiple programming languages based on natural language specifications and requirements.",
		Tags:        []string{"programming", "code generation", "development", "automation", "software"},
		Examples: []string{
			"Generate a Python script for data processing based on requirements",
			"Create a React component for user authentication with validation",
		},
	},
	"financial_analysis": {
		Name:        "Financial Analysis & Forecasting",
		Description: "Provides comprehensive financial analysis, market research, investment strategies, and predictive modeling for financial markets.",
		Tags:        []string{"finance", "investment", "forecasting", "analysis", "markets"},
		Examples: []string{
			"Analyze portfolio performance and suggest optimization strategies",
			"Forecast stock market trends using technical and fundamental analysis",
		},
	},
	"chatbot": {
		Name:        "Conversational AI & Support",
		Description: "Provides intelligent conversational interfaces for customer support, FAQ handling, and automated assistance across multiple channels.",
		Tags:        []string{"chatbot", "customer service", "conversation", "automation", "support"},
		Examples: []string{
			"Handle customer inquiries and provide instant support responses",
			"Guide users through complex product setup processes",
		},
	},
	"translation": {
		Name:        "Multi-Language Translation",
		Description: "Provides accurate translation services across multiple languages while preserving context, tone, and cultural nuances.",
		Tags:        []string{"translation", "multilingual", "localization", "language", "communication"},
		Examples: []string{
			"Translate business documents while maintaining professional tone",
			"Localize mobile app content for different regional markets",
		},
	},
	"text_summarization": {
		Name:        "Text Analysis & Summarization",
		Description: "Analyzes large volumes of text to extract key insights, generate summaries, and identify important themes and patterns.",
		Tags:        []string{"summarization", "text analysis", "research", "insights", "processing"},
		Examples: []string{
			"Summarize lengthy research papers into key findings and conclusions",
			"Extract main points from customer feedback and reviews",
		},
	},
}

// CardOptions tunes card generation.
type CardOptions struct {
	Version   string
	Domain    string
	CreatedAt time.Time
}

// DefaultCardOptions returns the options used by the HTTP API.
func DefaultCardOptions() CardOptions {
	return CardOptions{
		Version:   "1.0.0",
		Domain:    "agentmarketplace.com",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// BuildCard generates the agent card for rec. Skills are derived from the
// first MaxCardSkills capabilities; tags without a template are skipped.
// Feature flags are derived from the record id so a record always gets the
// same card.
func BuildCard(rec *discovery.AgentRecord, opts CardOptions) *AgentCard {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.Domain == "" {
		opts.Domain = "agentmarketplace.com"
	}

	id := rec.ID
	if id == "" {
		id = "unknown"
	}
	name := rec.Name
	if name == "" {
		name = "Unknown Agent"
	}
	description := rec.Description
	if description == "" {
		description = "AI agent providing specialized services"
	}
	providerURL := fmt.Sprintf("https://%s.%s", id, opts.Domain)
	endpoint := rec.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("agent2agent://%s.%s/connect", id, opts.Domain)
	}

	var skills []CardSkill
	for i, capability := range rec.Capabilities {
		if i >= MaxCardSkills {
			break
		}
		tmpl, ok := skillTemplates[capability]
		if !ok {
			continue
		}
		skills = append(skills, CardSkill{
			ID:          fmt.Sprintf("%s-%d", capability, i+1),
			Name:        tmpl.Name,
			Description: tmpl.Description,
			Tags:        tmpl.Tags,
			Examples:    tmpl.Examples,
			InputModes:  defaultModes,
			OutputModes: defaultModes,
		})
	}
	if skills == nil {
		skills = []CardSkill{}
	}

	flags := featureBits(id)
	capabilities := append([]string(nil), rec.Capabilities...)
	if capabilities == nil {
		capabilities = []string{}
	}

	return &AgentCard{
		Name:        name,
		Description: description,
		URL:         endpoint,
		Provider: CardProvider{
			Organization: strings.Fields(name)[0] + " AI Solutions",
			URL:          providerURL,
		},
		IconURL:          providerURL + "/icon.png",
		Version:          opts.Version,
		DocumentationURL: providerURL + "/docs",
		Capabilities: CardCapabilities{
			Streaming:              flags&1 != 0,
			PushNotifications:      flags&2 != 0,
			StateTransitionHistory: flags&4 != 0,
		},
		SecuritySchemes: map[string]SecurityScheme{
			"google": {
				Type:             "openIdConnect",
				OpenIDConnectURL: "https://accounts.google.com/.well-known/openid-configuration",
			},
		},
		Security:                          []map[string][]string{{"google": {"openid", "profile", "email"}}},
		DefaultInputModes:                 defaultModes,
		DefaultOutputModes:                defaultModes,
		Skills:                            skills,
		SupportsAuthenticatedExtendedCard: true,
		Pricing: CardPricing{
			Model:          "token_based",
			CostPerRequest: rec.Price,
			Currency:       "tokens",
		},
		Metadata: CardMetadata{
			Karma:            rec.Reputation,
			CapabilitiesList: capabilities,
			CreatedAt:        opts.CreatedAt,
			LastUpdated:      opts.CreatedAt,
		},
	}
}

func featureBits(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32()
}
