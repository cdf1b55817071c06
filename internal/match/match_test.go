package match

import (
	"testing"

	"github.com/news-alert-agent/internal/models"
)

func company(id, name string, aliases []string, domain string) models.Company {
	return models.Company{
		CompanyID:     id,
		Name:          name,
		Aliases:       aliases,
		WebsiteDomain: domain,
		Status:        "active",
	}
}

func TestCompaniesNameMatch(t *testing.T) {
	item := models.NewsItem{
		Title:          "Acme annuncia una nuova acquisizione",
		ContentSnippet: "Dettagli in arrivo",
	}
	companies := []models.Company{company("c001", "Acme", nil, "")}

	matches := Companies(item, companies)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Method != models.MatchMethodName {
		t.Errorf("method = %s, want name", matches[0].Method)
	}
	if matches[0].Confidence != models.ConfidenceName {
		t.Errorf("confidence = %v, want %v", matches[0].Confidence, models.ConfidenceName)
	}
}

func TestCompaniesDomainBeatsName(t *testing.T) {
	item := models.NewsItem{
		Title:          "Acme cresce ancora",
		URL:            "https://news.example.com/from/acme.it/article",
		ContentSnippet: "Acme ha annunciato risultati record",
	}
	companies := []models.Company{company("c001", "Acme", []string{"Acme SpA"}, "acme.it")}

	matches := Companies(item, companies)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Method != models.MatchMethodDomain {
		t.Errorf("method = %s, want domain", matches[0].Method)
	}
	if matches[0].Confidence != models.ConfidenceDomain {
		t.Errorf("confidence = %v, want %v", matches[0].Confidence, models.ConfidenceDomain)
	}
}

func TestCompaniesAliasMatch(t *testing.T) {
	item := models.NewsItem{Title: "Beta Works apre una nuova sede"}
	companies := []models.Company{company("c002", "Beta Works International", []string{"Beta Works"}, "")}

	matches := Companies(item, companies)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Method != models.MatchMethodAlias {
		t.Errorf("method = %s, want alias", matches[0].Method)
	}
}

func TestCompaniesSubstringIsPermissive(t *testing.T) {
	// Containment has no word boundaries, so a short name embedded in an
	// unrelated word still matches.
	item := models.NewsItem{Title: "La Acmex lancia un prodotto"}
	companies := []models.Company{company("c001", "Acme", nil, "")}

	matches := Companies(item, companies)
	if len(matches) != 1 {
		t.Fatalf("expected permissive substring match, got %d", len(matches))
	}
}

func TestCompaniesSkipsInactive(t *testing.T) {
	item := models.NewsItem{Title: "Acme annuncia risultati"}
	inactive := company("c001", "Acme", nil, "")
	inactive.Status = "inactive"

	if matches := Companies(item, []models.Company{inactive}); len(matches) != 0 {
		t.Errorf("expected no matches for inactive company, got %d", len(matches))
	}
}

func TestCompaniesPreservesEncounterOrder(t *testing.T) {
	item := models.NewsItem{Title: "Acme e Beta firmano un accordo"}
	companies := []models.Company{
		company("c002", "Beta", nil, ""),
		company("c001", "Acme", nil, ""),
	}

	matches := Companies(item, companies)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Company.CompanyID != "c002" || matches[1].Company.CompanyID != "c001" {
		t.Errorf("order = [%s %s], want roster encounter order [c002 c001]",
			matches[0].Company.CompanyID, matches[1].Company.CompanyID)
	}
}

func TestCompaniesNoMatch(t *testing.T) {
	item := models.NewsItem{Title: "Notizie generiche di mercato"}
	companies := []models.Company{company("c001", "Acme", nil, "acme.it")}

	if matches := Companies(item, companies); len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestTriggers(t *testing.T) {
	triggers := []models.Trigger{
		{TriggerID: "t001", Name: "M&A", Keywords: []string{"acquisizione", "fusione"}},
		{TriggerID: "t002", Name: "Leadership", Keywords: []string{"nuovo CEO", "nuovo amministratore"}},
		{TriggerID: "t003", Name: "Espansione", Keywords: []string{"nuova sede"}},
	}

	matched := Triggers("Acme completa l'acquisizione e nomina un NUOVO ceo", triggers)
	if len(matched) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(matched))
	}
	if matched[0].TriggerID != "t001" || matched[1].TriggerID != "t002" {
		t.Errorf("matched = [%s %s], want [t001 t002]", matched[0].TriggerID, matched[1].TriggerID)
	}
}

func TestTriggersFireOncePerTrigger(t *testing.T) {
	triggers := []models.Trigger{
		{TriggerID: "t001", Name: "M&A", Keywords: []string{"acquisizione", "acquisisce"}},
	}

	matched := Triggers("acquisizione completata: Acme acquisisce Beta", triggers)
	if len(matched) != 1 {
		t.Errorf("trigger fired %d times, want 1", len(matched))
	}
}

func TestTriggersNoMatch(t *testing.T) {
	triggers := []models.Trigger{
		{TriggerID: "t001", Keywords: []string{"acquisizione"}},
	}
	if matched := Triggers("risultati trimestrali stabili", triggers); len(matched) != 0 {
		t.Errorf("expected no triggers, got %d", len(matched))
	}
}
