package extract

// memoSystemPrompt is the system prompt for Memo1 extraction.
const memoSystemPrompt = `You are an investment analyst extracting a structured startup profile from a pitch.

Always respond with a single valid JSON object and nothing else. Use null for fields the pitch does not cover; never invent facts. List-typed fields must be JSON arrays of strings.`

// memoSchemaSection enumerates the Memo1 fields and their formatting rules.
// It is shared by the PDF and transcript prompts.
const memoSchemaSection = `Return a JSON object with exactly these fields:

Identity:
- "title": company name
- "founded_date": founding date as stated (e.g. "2021", "March 2021")
- "headquarters": "City, Region" format
- "company_stage": funding stage (Pre-seed, Seed, Series A, ...)

Team:
- "founder_name": array of founder names
- "founder_linkedin_url", "company_linkedin_url": URLs if shown
- "team_size": headcount as stated (e.g. "12", "10-15")
- "key_team_members": array, "Name - Role" entries
- "advisory_board": array of advisor names

Product:
- "problem", "solution": short paragraphs
- "technology_stack", "product_features": arrays
- "scalability_plan", "intellectual_property": short text

Market:
- "industry_category", "target_market": short text
- "market_size": TAM as free text with units (e.g. "$4.5B TAM")
- "sam", "som", "market_penetration", "market_timing", "market_trends": free text
- "competition": array of competitor names
- "competitive_advantages": array

Business:
- "business_model", "revenue_model", "pricing_strategy", "go_to_market", "sales_strategy": short text
- "partnerships": array

Financials (keep currency symbols and magnitude suffixes exactly as pitched, e.g. "$1.2M", "₹50L"):
- "current_revenue", "revenue_growth_rate", "customer_acquisition_cost", "lifetime_value",
  "gross_margin", "burn_rate", "runway", "funding_ask", "amount_raising",
  "pre_money_valuation", "post_money_valuation", "lead_investor", "committed_funding",
  "financial_projections"
- "use_of_funds": array of allocation entries

Assessment (MANDATORY - never null, never "Not specified"):
- "initial_flags": array of 3-5 specific concerns an investor should notice
- "validation_points": array of at most 5 claims that must be independently verified
- "summary_analysis": multi-paragraph investment summary
- "key_risks", "risk_mitigation": arrays
- "exit_strategy", "exit_valuation": free text
- "potential_acquirers": array`

// pdfUserPrompt wraps the schema for a PDF deck sent as a document part.
// The %s placeholder is the original filename.
const pdfUserPrompt = `Analyze the attached pitch deck (%s) and extract the startup profile.

` + memoSchemaSection

// transcriptUserPrompt wraps the schema for a transcribed pitch.
// Placeholders: filename, transcript.
const transcriptUserPrompt = `Analyze this transcribed pitch (%s) and extract the startup profile.

Transcript:
---
%s
---

` + memoSchemaSection
