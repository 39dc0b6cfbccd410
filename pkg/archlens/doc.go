// Package archlens predicts the architecture style of a requirement set and
// explains the prediction in terms of embedding dimensions.
//
// Quick start:
//
//	a, err := archlens.New(archlens.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	cases, _ := archlens.LoadCorpus("labeled_case_studies.json")
//	target, _ := archlens.LoadTarget("ai_generated_requirements_clean.json")
//	exp, _ := a.Explain(ctx, cases, target)
//	fmt.Println(exp.PredictedArchitecture, exp.TopContributingFeatures[0])
//
// Every Explain call trains a fresh classifier on the given cases; nothing
// is kept between calls except the embedder. An Archlens is safe for
// concurrent use when its embedder is.
package archlens
