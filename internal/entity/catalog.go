package entity

// Collection names of the TourCraft catalog.
const (
	Contacts   = "contacts"
	Structures = "structures"
	Lieux      = "lieux"
	Artistes   = "artistes"
	Dates      = "dates"
	Contrats   = "contrats"
	Taches     = "taches"
)

// Booking statuses of a date, in workflow order.
const (
	StatusOption        = "option"
	StatusConfirme      = "confirme"
	StatusContratEnvoye = "contrat_envoye"
	StatusContratSigne  = "contrat_signe"
	StatusFactureEnvoye = "facture_envoyee"
	StatusAnnule        = "annule"
)

// BookingStatuses lists every valid date status.
var BookingStatuses = []string{
	StatusOption, StatusConfirme, StatusContratEnvoye, StatusContratSigne, StatusFactureEnvoye, StatusAnnule,
}

// Catalog returns the schemas of every TourCraft entity type.
func Catalog() []Schema {
	return []Schema{
		{
			Type:         "contact",
			Collection:   Contacts,
			DisplayField: "nom",
			SearchFields: []string{"nom", "prenom", "email", "ville"},
			Fields: []Field{
				{Name: "nom", Kind: KindString, Required: true, MaxLength: 120},
				{Name: "prenom", Kind: KindString, MaxLength: 120},
				{Name: "fonction", Kind: KindString},
				{Name: "email", Kind: KindString, Format: "email"},
				{Name: "telephone", Kind: KindString, Pattern: `^[0-9 +().-]{6,20}$`},
				{Name: "ville", Kind: KindString},
				{Name: "structureId", Kind: KindRef, Ref: Structures},
				{Name: "lieuxIds", Kind: KindRefList, Ref: Lieux},
			},
		},
		{
			Type:         "structure",
			Collection:   Structures,
			DisplayField: "raisonSociale",
			SearchFields: []string{"raisonSociale", "nom", "ville", "siret"},
			Fields: []Field{
				{Name: "raisonSociale", Kind: KindString, Required: true, MaxLength: 200},
				{Name: "nom", Kind: KindString},
				{Name: "type", Kind: KindString, OneOf: []string{"association", "entreprise", "collectivite", "autre"}},
				{Name: "siret", Kind: KindString, Pattern: `^[0-9]{14}$`},
				{Name: "email", Kind: KindString, Format: "email"},
				{Name: "siteWeb", Kind: KindString, Format: "url"},
				{Name: "ville", Kind: KindString},
				{Name: "contactsIds", Kind: KindRefList, Ref: Contacts},
			},
		},
		{
			Type:         "lieu",
			Collection:   Lieux,
			DisplayField: "nom",
			SearchFields: []string{"nom", "ville", "codePostal"},
			Fields: []Field{
				{Name: "nom", Kind: KindString, Required: true, MaxLength: 200},
				{Name: "type", Kind: KindString},
				{Name: "capacite", Kind: KindNumber},
				{Name: "adresse", Kind: KindString},
				{Name: "codePostal", Kind: KindString, Pattern: `^[0-9A-Z -]{3,10}$`},
				{Name: "ville", Kind: KindString},
				{Name: "pays", Kind: KindString, Default: "France"},
				{Name: "gestionnaire", Kind: KindObject, Ref: Contacts},
			},
		},
		{
			Type:         "artiste",
			Collection:   Artistes,
			DisplayField: "nom",
			SearchFields: []string{"nom", "style"},
			Fields: []Field{
				{Name: "nom", Kind: KindString, Required: true, MaxLength: 200},
				{Name: "style", Kind: KindString},
				{Name: "email", Kind: KindString, Format: "email"},
				{Name: "siteWeb", Kind: KindString, Format: "url"},
			},
		},
		{
			Type:         "date",
			Collection:   Dates,
			DisplayField: "titre",
			SearchFields: []string{"titre", "lieuNom", "artisteNom"},
			Fields: []Field{
				{Name: "titre", Kind: KindString, Required: true, MaxLength: 200},
				{Name: "date", Kind: KindDate, Required: true},
				{Name: "dateFin", Kind: KindDate},
				{Name: "statut", Kind: KindString, OneOf: BookingStatuses, Default: StatusOption},
				{Name: "lieuId", Kind: KindRef, Ref: Lieux},
				{Name: "lieuNom", Kind: KindString},
				{Name: "structureId", Kind: KindRef, Ref: Structures},
				{Name: "artisteId", Kind: KindRef, Ref: Artistes},
				{Name: "artisteNom", Kind: KindString},
				{Name: "contactId", Kind: KindRef, Ref: Contacts},
				{Name: "montant", Kind: KindNumber},
			},
		},
		{
			Type:         "contrat",
			Collection:   Contrats,
			DisplayField: "reference",
			SearchFields: []string{"reference"},
			Fields: []Field{
				{Name: "reference", Kind: KindString, Required: true},
				{Name: "dateId", Kind: KindRef, Ref: Dates, Required: true},
				{Name: "structureId", Kind: KindRef, Ref: Structures},
				{Name: "status", Kind: KindString, OneOf: []string{"draft", "sent", "signed"}, Default: "draft"},
				{Name: "montant", Kind: KindNumber},
				{Name: "dateEnvoi", Kind: KindDate},
				{Name: "documentKey", Kind: KindString},
			},
		},
		{
			Type:         "tache",
			Collection:   Taches,
			DisplayField: "nom",
			SearchFields: []string{"nom", "description"},
			Fields: []Field{
				{Name: "nom", Kind: KindString, Required: true},
				{Name: "description", Kind: KindString},
				{Name: "type", Kind: KindString},
				{Name: "dateId", Kind: KindRef, Ref: Dates},
				{Name: "priorite", Kind: KindString, OneOf: []string{"haute", "moyenne", "basse"}},
				{Name: "status", Kind: KindString, OneOf: []string{"pending", "completed"}, Default: "pending"},
				{Name: "automatique", Kind: KindBool},
				{Name: "terminee", Kind: KindBool},
				{Name: "dateEcheance", Kind: KindDate},
			},
		},
	}
}

// DefaultRegistry returns a registry holding the catalog.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(Catalog()...)
	if err != nil {
		panic(err)
	}
	return reg
}
