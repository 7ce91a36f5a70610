package tool

import (
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

var catalog = map[contractx.ToolID]*schema.ToolInfo{
	contractx.ToolSocialSearch: {
		Name: string(contractx.ToolSocialSearch),
		Desc: "Busca publicaciones recientes en X/Twitter sobre un tema, hashtag o evento.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query":    {Type: schema.String, Desc: "Términos de búsqueda", Required: true},
			"location": {Type: schema.String, Desc: "Ubicación para acotar la búsqueda"},
			"limit":    {Type: schema.Integer, Desc: "Número máximo de publicaciones"},
		}),
	},
	contractx.ToolSocialProfile: {
		Name: string(contractx.ToolSocialProfile),
		Desc: "Obtiene las publicaciones recientes de un handle conocido de X/Twitter.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"username": {Type: schema.String, Desc: "Handle sin @", Required: true},
			"limit":    {Type: schema.Integer, Desc: "Número máximo de publicaciones"},
		}),
	},
	contractx.ToolWebSearch: {
		Name: string(contractx.ToolWebSearch),
		Desc: "Investiga en la web información de contexto o noticias.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Pregunta de investigación", Required: true},
		}),
	},
	contractx.ToolIdentityResolve: {
		Name: string(contractx.ToolIdentityResolve),
		Desc: "Encuentra el handle oficial de una persona, cargo o institución antes de consultar su perfil.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name":    {Type: schema.String, Desc: "Nombre o cargo", Required: true},
			"context": {Type: schema.String, Desc: "Contexto que ayuda a desambiguar"},
		}),
	},
	contractx.ToolMemorySearch: {
		Name: string(contractx.ToolMemorySearch),
		Desc: "Consulta la memoria persistente de hechos previamente verificados.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Qué recordar", Required: true},
			"limit": {Type: schema.Integer, Desc: "Número máximo de registros"},
		}),
	},
	contractx.ToolProjectsList: {
		Name: string(contractx.ToolProjectsList),
		Desc: "Lista los proyectos del usuario.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"status": {Type: schema.String, Desc: "Filtra por estado (active, paused, completed)"},
			"limit":  {Type: schema.Integer, Desc: "Número máximo de proyectos"},
		}),
	},
	contractx.ToolCodexSearch: {
		Name: string(contractx.ToolCodexSearch),
		Desc: "Busca en el codex del usuario: documentos, notas y enlaces guardados.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Desc: "Términos a buscar", Required: true},
			"limit": {Type: schema.Integer, Desc: "Número máximo de elementos"},
		}),
	},
	contractx.ToolProjectsDecisions: {
		Name: string(contractx.ToolProjectsDecisions),
		Desc: "Lista las decisiones registradas en los proyectos del usuario.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"project": {Type: schema.String, Desc: "Identificador o título del proyecto"},
			"limit":   {Type: schema.Integer, Desc: "Número máximo de decisiones"},
		}),
	},
}

var agentTools = map[contractx.AgentName][]contractx.ToolID{
	contractx.AgentSocial: {
		contractx.ToolSocialSearch,
		contractx.ToolSocialProfile,
		contractx.ToolWebSearch,
		contractx.ToolIdentityResolve,
		contractx.ToolMemorySearch,
	},
	contractx.AgentPersonal: {
		contractx.ToolProjectsList,
		contractx.ToolCodexSearch,
		contractx.ToolProjectsDecisions,
	},
}

// IDsFor returns the declared tool set of an agent in catalog order.
func IDsFor(agent contractx.AgentName) []contractx.ToolID {
	ids := agentTools[agent]
	out := make([]contractx.ToolID, len(ids))
	copy(out, ids)
	return out
}

// InfosFor returns the tool descriptions shown to the reasoning model.
func InfosFor(agent contractx.AgentName) []*schema.ToolInfo {
	ids := agentTools[agent]
	infos := make([]*schema.ToolInfo, 0, len(ids))
	for _, id := range ids {
		if info, ok := catalog[id]; ok {
			infos = append(infos, info)
		}
	}
	return infos
}

// Info returns the catalog entry for a tool.
func Info(id contractx.ToolID) (*schema.ToolInfo, bool) {
	info, ok := catalog[id]
	return info, ok
}
