// Package domain models the SIVEM incident spreadsheet and the normalization
// that turns it into analysis-ready tables.
//
// # Data Source
//
// Incident records are logged by civic monitors in a spreadsheet
// (dados_de_incidentes_manifestacoes_mocambique_2024.xlsx). Each row is one
// report of incidents during a demonstration: a free-text period, a count of
// registered cases, a free-text incident type, and usually a province.
// Headers drift between exports, so columns are located by name heuristics
// rather than by position. See [ResolveColumn].
//
// # Spreadsheet Conventions
//
// Header names:
//
//	Portuguese or English, with or without accents and abbreviations:
//	"Período", "periodo", "period"; "Casos registados", "casos";
//	"Tipo de incidente", "incidentes"; "Província", "provincia".
//	Headers are compared after NFKD decomposition with every non-ASCII rune
//	removed, lowercased and trimmed. Exact matches win over substring matches.
//
// Period format:
//
//	Day/month/year with optional day ranges and decorations:
//	  "5/3/2024"            → 2024-03-05
//	  "5–7/3/2024"          → 2024-03-05 (start day of the range)
//	  "de 5 a 7 de 3/2024"  → 2024-03-05 (first number is the day)
//	Years typed as "2004" are a known transcription error and read as 2024.
//	Anything else, or an impossible date such as 31/4, is missing.
//
// Incident type format:
//
//	Multi-valued free text: "Baleamentos / Detenções e Mortes".
//	Separators are " / ", "/", ";", "|", "," and the conjunction " e ".
//	Tokens are accent-stripped, lowercased and deduplicated in order.
//	The fixed vocabulary is baleamentos (shootings), detencoes (detentions)
//	and mortes (deaths); other tokens survive in the long table only.
//
// Case counts:
//
//	Numeric-like text. Decimals are truncated toward zero. Blank or
//	non-numeric counts become 0 and raise an advisory validation flag.
//
// # Output Tables
//
// The long table has one row per (record, category) pair and omits records
// with no categories. The wide table has one row per record and one 0/1
// indicator column per vocabulary category. Both keep every original column.
package domain
