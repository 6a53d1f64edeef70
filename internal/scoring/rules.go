package scoring

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/spigell/lead-responder/internal/leads"
)

var enterpriseDomains = []string{
	"microsoft.com", "google.com", "amazon.com", "apple.com", "meta.com",
	"salesforce.com", "oracle.com", "ibm.com", "cisco.com", "intel.com",
	"adobe.com", "netflix.com", "uber.com", "airbnb.com", "stripe.com",
}

var enterpriseKeywords = []string{
	"corp", "corporation", "inc", "incorporated", "ltd", "limited",
	"global", "international", "worldwide", "enterprise", "systems",
	"solutions", "technologies", "group", "holdings",
}

var executiveTitles = []string{
	"ceo", "chief executive officer", "president", "founder", "co-founder",
	"cto", "chief technology officer", "cfo", "chief financial officer",
	"cmo", "chief marketing officer", "coo", "chief operating officer",
	"vp", "vice president", "svp", "senior vice president", "evp",
	"executive vice president", "head of", "director", "senior director",
	"principal", "partner", "owner",
}

var seniorTitles = []string{
	"manager", "senior manager", "lead", "senior lead", "team lead",
	"architect", "senior architect", "principal engineer", "staff engineer",
	"senior engineer", "senior developer", "tech lead", "engineering manager",
}

var contributorTitles = []string{"analyst", "coordinator", "specialist", "associate"}

var startupIndicators = []string{"startup", "inc.", "llc"}

var consumerProviders = []string{"gmail", "yahoo", "hotmail", "outlook"}

var phonePattern = regexp.MustCompile(`^[\+]?[1]?[\s\-\.]?[\(]?[0-9]{3}[\)]?[\s\-\.]?[0-9]{3}[\s\-\.]?[0-9]{4}$`)

var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// rule is one row of a first-match-wins table.
type rule struct {
	match  func(in ruleInput) bool
	score  float64
	reason func(in ruleInput) string
}

type ruleInput struct {
	title   string
	company string
	domain  string
}

func containsAny(s string, vocabulary []string) bool {
	for _, word := range vocabulary {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}

func isEnterpriseDomain(domain string) bool {
	return slices.Contains(enterpriseDomains, domain)
}

var titleRules = []rule{
	{
		match:  func(in ruleInput) bool { return strings.TrimSpace(in.title) == "" },
		score:  0,
		reason: func(ruleInput) string { return "No title provided" },
	},
	{
		match:  func(in ruleInput) bool { return containsAny(strings.ToLower(in.title), executiveTitles) },
		score:  90,
		reason: func(in ruleInput) string { return "Executive-level title: " + in.title },
	},
	{
		match:  func(in ruleInput) bool { return containsAny(strings.ToLower(in.title), seniorTitles) },
		score:  70,
		reason: func(in ruleInput) string { return "Senior-level title: " + in.title },
	},
	{
		match:  func(in ruleInput) bool { return containsAny(strings.ToLower(in.title), contributorTitles) },
		score:  40,
		reason: func(in ruleInput) string { return "Individual contributor title: " + in.title },
	},
	{
		match:  func(ruleInput) bool { return true },
		score:  50,
		reason: func(in ruleInput) string { return "Mid-level title: " + in.title },
	},
}

var companyRules = []rule{
	{
		match:  func(in ruleInput) bool { return isEnterpriseDomain(in.domain) },
		score:  95,
		reason: func(in ruleInput) string { return "Fortune 500 company domain: " + in.domain },
	},
	{
		match:  func(in ruleInput) bool { return containsAny(strings.ToLower(in.company), enterpriseKeywords) },
		score:  80,
		reason: func(in ruleInput) string { return "Enterprise company indicators in: " + in.company },
	},
	{
		match:  func(in ruleInput) bool { return strings.HasSuffix(in.domain, ".edu") },
		score:  60,
		reason: func(in ruleInput) string { return "Educational institution: " + in.domain },
	},
	{
		match:  func(in ruleInput) bool { return strings.HasSuffix(in.domain, ".gov") },
		score:  75,
		reason: func(in ruleInput) string { return "Government organization: " + in.domain },
	},
	{
		match:  func(in ruleInput) bool { return containsAny(strings.ToLower(in.company), startupIndicators) },
		score:  40,
		reason: func(in ruleInput) string { return "Startup/small business indicators: " + in.company },
	},
	{
		match:  func(in ruleInput) bool { return in.company != "" },
		score:  55,
		reason: func(in ruleInput) string { return "Mid-size company: " + in.company },
	},
	{
		match:  func(ruleInput) bool { return true },
		score:  30,
		reason: func(ruleInput) string { return "No company information available" },
	},
}

func evaluate(rules []rule, in ruleInput) (float64, string) {
	for _, r := range rules {
		if r.match(in) {
			return r.score, r.reason(in)
		}
	}
	return 0, ""
}

func scoreCompleteness(lead leads.Lead) (float64, string) {
	total := len(lead.TrackedFields())
	filled := lead.FilledFields()
	ratio := float64(filled) / float64(total)
	return ratio * 100, fmt.Sprintf("Profile is %.1f%% complete (%d/%d fields filled)", ratio*100, filled, total)
}

func scoreTitle(lead leads.Lead) (float64, string) {
	return evaluate(titleRules, ruleInput{title: lead.Title})
}

func scoreCompany(lead leads.Lead) (float64, string) {
	return evaluate(companyRules, ruleInput{company: lead.Company, domain: lead.EmailDomain()})
}

// contactBonus is an additive contribution to contact quality.
type contactBonus struct {
	points float64
	tag    string
}

func contactBonuses(lead leads.Lead) []contactBonus {
	var bonuses []contactBonus

	if strings.Contains(lead.Email, "@") {
		domain := lead.EmailDomain()
		switch {
		case isEnterpriseDomain(domain):
			bonuses = append(bonuses, contactBonus{40, "enterprise email domain"})
		case !containsAny(domain, consumerProviders):
			bonuses = append(bonuses, contactBonus{35, "business email domain"})
		default:
			bonuses = append(bonuses, contactBonus{20, "consumer email domain"})
		}
	}

	if strings.TrimSpace(lead.Phone) != "" {
		if phonePattern.MatchString(phoneStripper.Replace(lead.Phone)) {
			bonuses = append(bonuses, contactBonus{30, "properly formatted phone"})
		} else {
			bonuses = append(bonuses, contactBonus{20, "phone number provided"})
		}
	}

	if strings.Contains(strings.ToLower(lead.LinkedInURL), "linkedin.com") {
		bonuses = append(bonuses, contactBonus{30, "LinkedIn profile"})
	}

	return bonuses
}

func scoreContact(lead leads.Lead) (float64, string) {
	bonuses := contactBonuses(lead)
	if len(bonuses) == 0 {
		return 0, "Basic contact info only"
	}

	var score float64
	tags := make([]string, 0, len(bonuses))
	for _, b := range bonuses {
		score += b.points
		tags = append(tags, b.tag)
	}

	return min(score, 100), "Quality indicators: " + strings.Join(tags, ", ")
}
