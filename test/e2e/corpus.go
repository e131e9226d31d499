// Package e2e drives whole conversations through the HTTP API: upload a document,
// ask questions about it, and check what was cited and sent to the model.
package e2e

import (
	"fmt"
	"strings"
)

// Topic is one passage of the corpus. Phrase appears verbatim in Content and in no
// other topic, so a question made of it should retrieve this passage.
type Topic struct {
	Title   string
	Phrase  string
	Content string
}

// QuestionCase is a question and the phrase its citations must contain.
type QuestionCase struct {
	Question    string
	Expected    string
	Description string
}

// Corpus holds the passages and the questions asked about them.
type Corpus struct {
	Topics []Topic
	Cases  []QuestionCase
}

var topics = []Topic{
	{"Python Guide", "Python programming language", "Python is a high-level programming language. Python programming language is used for web development and data science."},
	{"Kubernetes Docs", "Kubernetes container orchestration", "Kubernetes is an open-source container orchestration platform. Kubernetes container orchestration automates deployment and scaling."},
	{"React Tutorial", "React hooks and components", "React is a JavaScript library. React hooks and components enable building user interfaces."},
	{"PostgreSQL Manual", "PostgreSQL relational database", "PostgreSQL is an advanced relational database. PostgreSQL relational database supports JSON and full-text search."},
	{"Machine Learning", "machine learning algorithms", "Machine learning is a subset of AI. Machine learning algorithms learn patterns from data."},
	{"GraphQL Overview", "GraphQL query language", "GraphQL is a query language for APIs. GraphQL query language lets clients request exactly what they need."},
	{"Redis Cache", "Redis in-memory cache", "Redis is an in-memory data store. Redis in-memory cache is used for sessions and caching."},
	{"Terraform IaC", "Terraform infrastructure as code", "Terraform manages cloud infrastructure. Terraform infrastructure as code is declarative."},
	{"Prometheus Metrics", "Prometheus monitoring metrics", "Prometheus is a monitoring system. Prometheus monitoring metrics are time-series based."},
	{"gRPC Overview", "gRPC remote procedure calls", "gRPC is a high-performance RPC framework. gRPC remote procedure calls use HTTP/2 and protobuf."},
	{"OAuth 2.0", "OAuth 2.0 authorization", "OAuth 2.0 is an authorization framework. OAuth 2.0 authorization enables secure delegated access."},
	{"Git Workflow", "Git version control", "Git is a distributed version control system. Git version control tracks changes in source code."},
	{"Kafka Streams", "Apache Kafka streaming", "Apache Kafka is a distributed event stream platform. Apache Kafka streaming handles high throughput."},
	{"Nginx Config", "Nginx reverse proxy", "Nginx is a web server and reverse proxy. Nginx reverse proxy balances load and serves static files."},
	{"Cryptography Basics", "cryptography encryption decryption", "Cryptography secures data. Cryptography encryption decryption uses keys and ciphers."},
	{"Agile Scrum", "Agile Scrum sprint", "Agile is an iterative approach. Agile Scrum sprint typically lasts two weeks."},
	{"Password Hashing", "password hashing bcrypt", "Passwords must be hashed. Password hashing bcrypt is resistant to rainbow tables."},
	{"Graph Database", "graph database Neo4j", "Graph stores keep nodes and edges. Graph database Neo4j is used for relationships."},
	{"Chaos Engineering", "chaos engineering resilience", "Chaos engineering tests resilience. Chaos engineering resilience uses fault injection."},
	{"Canary Release", "canary release gradual", "Canary rolls out to a subset. Canary release gradual reduces blast radius."},
	{"Fuzz Testing", "fuzz testing random", "Fuzz testing uses random input. Fuzz testing random finds edge cases."},
	{"Secrets Management", "secrets management vault", "Secrets must not be in code. Secrets management vault encrypts and audits."},
	{"Service Mesh", "service mesh Istio", "Service mesh manages service-to-service traffic. Service mesh Istio provides mTLS and observability."},
	{"Accessibility", "accessibility WCAG", "Accessibility ensures inclusive design. Accessibility WCAG provides guidelines."},
}

// BuildCorpus returns every topic with one question per topic.
func BuildCorpus() *Corpus {
	c := &Corpus{Topics: append([]Topic(nil), topics...)}
	for _, t := range c.Topics {
		c.Cases = append(c.Cases, QuestionCase{
			Question:    t.Phrase + "?",
			Expected:    t.Phrase,
			Description: fmt.Sprintf("question about %s cites its passage", t.Title),
		})
	}
	return c
}

// Passages returns each topic as "Title. Content".
func (c *Corpus) Passages() []string {
	out := make([]string, len(c.Topics))
	for i, t := range c.Topics {
		out[i] = t.Title + ". " + t.Content
	}
	return out
}

// containsPhrase reports whether text contains phrase, ignoring case.
func containsPhrase(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}
