package db

// Fixed cargo UUIDs for the default role set, so repeated bootstraps across
// environments produce stable identifiers.
const (
	SeedCargoAdminGeral       = "00000000-0000-0000-0000-0000000000a1"
	SeedCargoGerenteGeral     = "00000000-0000-0000-0000-0000000000a2"
	SeedCargoGerenteUsuarios  = "00000000-0000-0000-0000-0000000000a3"
	SeedCargoGerenteProjetos  = "00000000-0000-0000-0000-0000000000a4"
	SeedCargoGerenteProjSenior = "00000000-0000-0000-0000-0000000000a5"
	SeedCargoGerenteCargos    = "00000000-0000-0000-0000-0000000000a6"
	SeedCargoColaborador      = "00000000-0000-0000-0000-0000000000a7"
)

// SeedCargos returns the default role set created when the registry is
// empty. Flags mirror the original portal's fixed roles.
func SeedCargos() []Cargo {
	return []Cargo{
		{
			ID:                   SeedCargoAdminGeral,
			Name:                 "Administrador Geral",
			Kind:                 CargoKindAdmin,
			ManagerTier:          true,
			CanManageUsers:       true,
			CanManagePermissions: true,
			CanCreateCargos:      true,
			CanCreateProjects:    true,
			CanEditProjectCards:  true,
		},
		{
			ID:                   SeedCargoGerenteGeral,
			Name:                 "Gerente Geral",
			Kind:                 CargoKindAdmin,
			ManagerTier:          true,
			CanManageUsers:       true,
			CanManagePermissions: true,
			CanCreateProjects:    true,
			CanEditProjectCards:  true,
		},
		{
			ID:             SeedCargoGerenteUsuarios,
			Name:           "Gerente de Usuários",
			Kind:           CargoKindCollaborator,
			CanManageUsers: true,
		},
		{
			ID:                  SeedCargoGerenteProjetos,
			Name:                "Gerente de Projetos",
			Kind:                CargoKindCollaborator,
			CanCreateProjects:   true,
			CanEditProjectCards: true,
		},
		{
			ID:                   SeedCargoGerenteProjSenior,
			Name:                 "Gerente de Projetos Sênior",
			Kind:                 CargoKindCollaborator,
			CanManagePermissions: true,
			CanCreateProjects:    true,
			CanEditProjectCards:  true,
		},
		{
			ID:              SeedCargoGerenteCargos,
			Name:            "Gerente de Cargos",
			Kind:            CargoKindCollaborator,
			CanCreateCargos: true,
		},
		{
			ID:   SeedCargoColaborador,
			Name: "Colaborador",
			Kind: CargoKindCollaborator,
		},
	}
}
