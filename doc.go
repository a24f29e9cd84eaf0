/*
Package relay routes a conversation between an NLU intent classifier and
specialised conversational components.

Every session starts Unowned: each utterance is classified and the
classifier's default reply is returned. When the detected intent is listed
in the trigger table, the mapped component takes control of the session and
answers that same utterance. From then on it answers every turn until it
reports done, which hands control back to the classifier.

# Usage

	component, err := coco.New("register_vp3")
	if err != nil {
		log.Fatal(err)
	}
	reg := registry.NewRegistry()
	reg.Register("register_vp3", component)

	r := relay.New(classifier, reg,
		relay.WithTriggers(domain.TriggerTable{"account.open": "register_vp3"}),
	)

	reply, err := r.Send(ctx, "session-123", "I want to open an account")

State is committed only when every collaborator call of the turn succeeds,
and turns of one session are serialized. Errors wrap the sentinels in
pkg/domain, so callers tell failures apart with errors.Is.
*/
package relay
