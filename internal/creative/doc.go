// Package creative holds the data model shared by every pipeline stage: the
// scored examples read from the performance sheet, the resolved generation
// request, and the ScriptSuggestion that carries a script, its narration and
// composed video, and any stage-scoped failure through the pipeline.
//
// Requests are built once through NewGenerationRequest, which resolves every
// default (voice, primer, language, tabs) up front so downstream stages never
// consult global configuration.
package creative
