package hubspottest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/fivetwenty-io/hubspot-client/pkg/hubspot"
)

var (
	lifecycleStages = []string{"subscriber", "lead", "marketingqualifiedlead", "salesqualifiedlead", "opportunity", "customer"}
	dealStages      = []string{"appointmentscheduled", "qualifiedtobuy", "presentationscheduled", "decisionmakerboughtin", "contractsent", "closedwon", "closedlost"}
	ticketStages    = []string{"1", "2", "3", "4"}
	priorities      = []string{"LOW", "MEDIUM", "HIGH"}
)

// SeedResult lists the ids of the records Seed created.
type SeedResult struct {
	Companies []int64
	Contacts  []int64
	Deals     []int64
	Tickets   []int64
}

// Seed fills the store with n companies, each with two contacts, a deal and
// a ticket, linked by their default associations. The same seed always
// produces the same records.
func (s *Store) Seed(ctx context.Context, n int, seed int64) (*SeedResult, error) {
	faker := gofakeit.New(seed)
	result := &SeedResult{}

	for range n {
		company, err := s.Create(ctx, hubspot.ObjectTypeCompanies, fakeCompany(faker))
		if err != nil {
			return nil, fmt.Errorf("seeding company: %w", err)
		}

		result.Companies = append(result.Companies, company.ID)

		for range 2 {
			contact, err := s.Create(ctx, hubspot.ObjectTypeContacts, fakeContact(faker, company.Properties))
			if err != nil {
				return nil, fmt.Errorf("seeding contact: %w", err)
			}

			result.Contacts = append(result.Contacts, contact.ID)

			_, err = s.Associate(ctx, hubspot.ObjectTypeContacts, contact.ID, hubspot.ObjectTypeCompanies, company.ID,
				int64(hubspot.ContactToCompanyPrimary))
			if err != nil {
				return nil, err
			}
		}

		deal, err := s.Create(ctx, hubspot.ObjectTypeDeals, fakeDeal(faker, company.Properties["name"]))
		if err != nil {
			return nil, fmt.Errorf("seeding deal: %w", err)
		}

		result.Deals = append(result.Deals, deal.ID)

		ticket, err := s.Create(ctx, hubspot.ObjectTypeTickets, fakeTicket(faker))
		if err != nil {
			return nil, fmt.Errorf("seeding ticket: %w", err)
		}

		result.Tickets = append(result.Tickets, ticket.ID)

		for _, link := range []struct {
			fromType string
			fromID   int64
		}{{hubspot.ObjectTypeDeals, deal.ID}, {hubspot.ObjectTypeTickets, ticket.ID}} {
			_, err = s.Associate(ctx, link.fromType, link.fromID, hubspot.ObjectTypeCompanies, company.ID)
			if err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

func fakeCompany(faker *gofakeit.Faker) hubspot.Properties {
	name := faker.Company()
	domain := strings.ToLower(strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}

		return -1
	}, name)), "")) + ".example.com"

	return hubspot.Properties{
		"name":              name,
		"domain":            domain,
		"industry":          faker.RandomString([]string{"COMPUTER_SOFTWARE", "FINANCIAL_SERVICES", "RETAIL", "HOSPITAL_HEALTH_CARE"}),
		"phone":             faker.Phone(),
		"city":              faker.City(),
		"state":             faker.State(),
		"country":           faker.Country(),
		"zip":               faker.Zip(),
		"numberofemployees": strconv.Itoa(faker.Number(5, 5000)),
		"annualrevenue":     strconv.Itoa(faker.Number(100000, 50000000)),
		"lifecyclestage":    faker.RandomString(lifecycleStages),
	}
}

func fakeContact(faker *gofakeit.Faker, company hubspot.Properties) hubspot.Properties {
	first, last := faker.FirstName(), faker.LastName()

	return hubspot.Properties{
		"email":          strings.ToLower(first+"."+last) + "." + strconv.Itoa(faker.Number(1, 99999)) + "@" + company["domain"],
		"firstname":      first,
		"lastname":       last,
		"phone":          faker.Phone(),
		"company":        company["name"],
		"jobtitle":       faker.JobTitle(),
		"city":           company["city"],
		"country":        company["country"],
		"lifecyclestage": faker.RandomString(lifecycleStages),
	}
}

func fakeDeal(faker *gofakeit.Faker, companyName string) hubspot.Properties {
	closeDate := faker.FutureDate().UTC().Format("2006-01-02")

	return hubspot.Properties{
		"dealname":  companyName + " - " + faker.BuzzWord(),
		"amount":    strconv.Itoa(faker.Number(1000, 250000)),
		"dealstage": faker.RandomString(dealStages),
		"pipeline":  "default",
		"closedate": closeDate,
		"dealtype":  faker.RandomString([]string{"newbusiness", "existingbusiness"}),
	}
}

func fakeTicket(faker *gofakeit.Faker) hubspot.Properties {
	return hubspot.Properties{
		"subject":            faker.HackerPhrase(),
		"content":            faker.Sentence(12),
		"hs_pipeline":        "0",
		"hs_pipeline_stage":  faker.RandomString(ticketStages),
		"hs_ticket_priority": faker.RandomString(priorities),
	}
}
