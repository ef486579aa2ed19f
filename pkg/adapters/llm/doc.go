// Package llm provides LLM client implementations used by llm steps.
//
// The factory creates LLM clients based on provider configuration.
// Currently supports:
//   - Anthropic Claude
package llm
