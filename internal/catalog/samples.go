// Package catalog provides the sample marketplace catalog and agent-card
// generation for catalog records.
package catalog

import (
	"math"
	"math/rand/v2"

	"github.com/BaSui01/agentmarket/agent/discovery"
)

// Karma bounds for generated sample records.
const (
	MinSampleKarma = 150
	MaxSampleKarma = 2500
)

// Sample is a catalog entry template with a price range.
type Sample struct {
	ID           string
	Name         string
	Description  string
	Capabilities []string
	Endpoint     string
	PriceMin     float64
	PriceMax     float64
}

// Samples is the built-in sample catalog.
var Samples = []Sample{
	{
		ID:           "data-analysis-pro-v1",
		Name:         "Data Analysis Pro",
		Description:  "Expert in statistical analysis, data modeling, and generating business intelligence reports. Can handle large datasets efficiently.",
		Capabilities: []string{"data_analysis", "sql", "business_intelligence", "statistics"},
		Endpoint:     "agent2agent://data-analysis-pro-v1.agentmarketplace.com/connect",
		PriceMin:     0.01, PriceMax: 0.15,
	},
	{
		ID:           "creative-writer-gpt-v2",
		Name:         "Creative Writer GPT",
		Description:  "Generates high-quality, human-like text for blogs, marketing copy, and scripts. Specializes in creative and engaging content.",
		Capabilities: []string{"content_creation", "copywriting", "natural_language_generation", "creative_writing"},
		Endpoint:     "agent2agent://creative-writer-gpt-v2.agentmarketplace.com/connect",
		PriceMin:     0.02, PriceMax: 0.20,
	},
	{
		ID:           "sentiment-analyzer-v3",
		Name:         "Sentiment Analyzer",
		Description:  "Analyzes text to determine sentiment (positive, negative, neutral). Ideal for processing customer feedback, social media comments, and product reviews.",
		Capabilities: []string{"sentiment_analysis", "natural_language_processing", "text_classification"},
		Endpoint:     "agent2agent://sentiment-analyzer-v3.agentmarketplace.com/connect",
		PriceMin:     0.005, PriceMax: 0.08,
	},
	{
		ID:           "web-scraper-bot-v4",
		Name:         "Web Scraper Bot",
		Description:  "Extracts structured and unstructured data from websites. Can handle dynamic pages, logins, and CAPTCHAs.",
		Capabilities: []string{"web_scraping", "data_collection", "html_parsing", "automation"},
		Endpoint:     "agent2agent://web-scraper-bot-v4.agentmarketplace.com/connect",
		PriceMin:     0.03, PriceMax: 0.25,
	},
	{
		ID:           "image-recognition-cnn-v1",
		Name:         "Image Recognition CNN",
		Description:  "Identifies objects, faces, and scenes in images using advanced Convolutional Neural Networks.",
		Capabilities: []string{"image_recognition", "computer_vision", "object_detection", "deep_learning"},
		Endpoint:     "agent2agent://image-recognition-cnn-v1.agentmarketplace.com/connect",
		PriceMin:     0.04, PriceMax: 0.30,
	},
	{
		ID:           "code-generator-alpha-v1.2",
		Name:         "Code Generator Alpha",
		Description:  "Generates code snippets in multiple programming languages based on natural language descriptions. Supports Python, JavaScript, and Java.",
		Capabilities: []string{"code_generation", "python", "javascript", "developer_tools"},
		Endpoint:     "agent2agent://code-generator-alpha-v1-2.agentmarketplace.com/connect",
		PriceMin:     0.02, PriceMax: 0.18,
	},
	{
		ID:           "financial-forecaster-v2",
		Name:         "Financial Forecaster",
		Description:  "Predicts stock market trends, analyzes investment portfolios, and generates financial forecasts using time-series analysis.",
		Capabilities: []string{"financial_analysis", "forecasting", "investment_management", "time_series"},
		Endpoint:     "agent2agent://financial-forecaster-v2.agentmarketplace.com/connect",
		PriceMin:     0.05, PriceMax: 0.35,
	},
	{
		ID:           "customer-support-chatbot-v5",
		Name:         "SupportBot 3000",
		Description:  "An automated chatbot for handling customer support inquiries, answering FAQs, and escalating complex issues to human agents.",
		Capabilities: []string{"chatbot", "customer_service", "faq_answering", "dialogue_management"},
		Endpoint:     "agent2agent://customer-support-chatbot-v5.agentmarketplace.com/connect",
		PriceMin:     0.01, PriceMax: 0.12,
	},
	{
		ID:           "translation-service-v1",
		Name:         "Polyglot Translator",
		Description:  "Provides fast and accurate translation between over 50 languages. Maintains context and idiomatic expressions.",
		Capabilities: []string{"translation", "multilingual", "natural_language_processing"},
		Endpoint:     "agent2agent://translation-service-v1.agentmarketplace.com/connect",
		PriceMin:     0.01, PriceMax: 0.10,
	},
	{
		ID:           "research-assistant-v1",
		Name:         "Academic Research Assistant",
		Description:  "Summarizes academic papers, finds relevant literature, and helps in drafting research proposals.",
		Capabilities: []string{"text_summarization", "research", "academic_writing", "information_retrieval"},
		Endpoint:     "agent2agent://research-assistant-v1.agentmarketplace.com/connect",
		PriceMin:     0.02, PriceMax: 0.16,
	},
	{
		ID:           "music-composer-v1",
		Name:         "Maestro AI",
		Description:  "Composes original royalty-free music in various genres, from classical to electronic.",
		Capabilities: []string{"music_generation", "creative_tools", "audio_processing"},
		Endpoint:     "agent2agent://music-composer-v1.agentmarketplace.com/connect",
		PriceMin:     0.06, PriceMax: 0.40,
	},
	{
		ID:           "video-analyzer-v1",
		Name:         "Video Insights Extractor",
		Description:  "Analyzes video content to detect objects, transcribe speech, and identify key scenes.",
		Capabilities: []string{"video_analysis", "speech_to_text", "computer_vision"},
		Endpoint:     "agent2agent://video-analyzer-v1.agentmarketplace.com/connect",
		PriceMin:     0.08, PriceMax: 0.50,
	},
	{
		ID:           "personal-finance-manager-v2",
		Name:         "MyFinance Pal",
		Description:  "Helps users track expenses, create budgets, and provides personalized financial advice.",
		Capabilities: []string{"personal_finance", "budgeting", "expense_tracking"},
		Endpoint:     "agent2agent://personal-finance-manager-v2.agentmarketplace.com/connect",
		PriceMin:     0.01, PriceMax: 0.14,
	},
	{
		ID:           "game-npc-logic-v1",
		Name:         "Game NPC Brain",
		Description:  "Provides advanced AI logic for non-player characters in video games, creating dynamic and responsive behaviors.",
		Capabilities: []string{"game_development", "ai_logic", "npc_behavior"},
		Endpoint:     "agent2agent://game-npc-logic-v1.agentmarketplace.com/connect",
		PriceMin:     0.03, PriceMax: 0.22,
	},
	{
		ID:           "social-media-manager-v3",
		Name:         "Social Media Growth Manager",
		Description:  "Schedules posts, analyzes engagement metrics, and suggests content strategies to grow social media presence.",
		Capabilities: []string{"social_media_management", "marketing_automation", "analytics"},
		Endpoint:     "agent2agent://social-media-manager-v3.agentmarketplace.com/connect",
		PriceMin:     0.02, PriceMax: 0.17,
	},
}

// SampleRecords materializes Samples with prices drawn uniformly from each
// sample's range (rounded to three decimals) and karma from
// [MinSampleKarma, MaxSampleKarma]. The same seed yields the same catalog.
func SampleRecords(seed uint64) []*discovery.AgentRecord {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]*discovery.AgentRecord, 0, len(Samples))
	for _, s := range Samples {
		price := s.PriceMin + rng.Float64()*(s.PriceMax-s.PriceMin)
		out = append(out, &discovery.AgentRecord{
			ID:           s.ID,
			Name:         s.Name,
			Description:  s.Description,
			Capabilities: append([]string(nil), s.Capabilities...),
			Endpoint:     s.Endpoint,
			Price:        math.Round(price*1000) / 1000,
			Reputation:   MinSampleKarma + rng.IntN(MaxSampleKarma-MinSampleKarma+1),
		})
	}
	return out
}
