// =============================================================================
// 📦 测试数据工厂 - Agent 目录测试数据
// =============================================================================
// 提供确定性的目录记录，用于存储、检索与排序测试
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/agentmarket/agent/discovery"
)

// Fixture ids.
const (
	DataAnalysisID = "data-analysis-pro-v1"
	SentimentID    = "sentiment-analyzer-v3"
	WebScraperID   = "web-scraper-bot-v4"
	TranslationID  = "translation-service-v1"
)

// =============================================================================
// 🤖 目录记录工厂
// =============================================================================

// Records returns four catalog records with distinct price and karma.
//
//	id                      price  karma
//	data-analysis-pro-v1    0.05   2500
//	sentiment-analyzer-v3   0.02   1800
//	web-scraper-bot-v4      0.03    900
//	translation-service-v1  0.01   1200
func Records() []*discovery.AgentRecord {
	return []*discovery.AgentRecord{
		DataAnalysisAgent(),
		SentimentAgent(),
		WebScraperAgent(),
		TranslationAgent(),
	}
}

// DataAnalysisAgent returns the most reputable, most expensive fixture.
func DataAnalysisAgent() *discovery.AgentRecord {
	return &discovery.AgentRecord{
		ID:           DataAnalysisID,
		Name:         "DataAnalysis Pro",
		Description:  "Advanced data analysis and visualization agent",
		Capabilities: []string{"data_analysis", "sql", "business_intelligence", "statistics"},
		Endpoint:     "agent2agent://data-analysis-pro-v1.agentmarketplace.com/connect",
		Price:        0.05,
		Reputation:   2500,
	}
}

// SentimentAgent returns the best-value fixture among nlp providers by karma.
func SentimentAgent() *discovery.AgentRecord {
	return &discovery.AgentRecord{
		ID:           SentimentID,
		Name:         "Sentiment Analyzer",
		Description:  "Analyzes sentiment in customer reviews",
		Capabilities: []string{"sentiment_analysis", "nlp", "text_classification"},
		Endpoint:     "agent2agent://sentiment-analyzer-v3.agentmarketplace.com/connect",
		Price:        0.02,
		Reputation:   1800,
	}
}

// WebScraperAgent returns the least reputable fixture.
func WebScraperAgent() *discovery.AgentRecord {
	return &discovery.AgentRecord{
		ID:           WebScraperID,
		Name:         "WebScraper Bot",
		Description:  "Extracts structured data from websites",
		Capabilities: []string{"web_scraping", "data_extraction", "automation"},
		Endpoint:     "agent2agent://web-scraper-bot-v4.agentmarketplace.com/connect",
		Price:        0.03,
		Reputation:   900,
	}
}

// TranslationAgent returns the cheapest fixture.
func TranslationAgent() *discovery.AgentRecord {
	return &discovery.AgentRecord{
		ID:           TranslationID,
		Name:         "Translation Service",
		Description:  "Multilingual translation",
		Capabilities: []string{"translation", "nlp", "localization"},
		Endpoint:     "agent2agent://translation-service-v1.agentmarketplace.com/connect",
		Price:        0.01,
		Reputation:   1200,
	}
}

// Store returns an in-memory store seeded with Records.
func Store(opts ...discovery.MemoryStoreOption) *discovery.InMemoryStore {
	return discovery.NewInMemoryStore(Records(), opts...)
}
