package report

const textTemplate = `{% autoescape off %}run {{ run.ID }} {{ run.Status }} in {{ run.Seconds }}s ({{ run.Tests }} checks, {{ run.Failures }} failed)
{% for p in run.Phases %}  {{ p.Name }}: {{ p.Status }} ({{ p.Tests }} checks, {{ p.Seconds }}s)
{% for c in p.Checks %}{% if not c.Passed %}    {{ c.Rule }} / {{ c.TestCase }} after {{ c.Attempts }} attempts: {{ c.Message }}
{% endif %}{% endfor %}{% endfor %}{% if run.Failure %}failure: {{ run.Failure }}
{% endif %}attempts: {{ summary.Attempts }} (passed {{ summary.Passed }}, failed {{ summary.Failed }}, errors {{ summary.Errors }})
{% endautoescape %}`

const junitTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites name="sampling-conformance" tests="{{ run.Tests }}" failures="{{ run.Failures }}" time="{{ run.Seconds }}">
{% for p in run.Phases %}  <testsuite name="{{ p.Name }}" tests="{{ p.Tests }}" failures="{{ p.Failures }}" time="{{ p.Seconds }}" timestamp="{{ run.Started }}">
    <properties>
      <property name="run_id" value="{{ run.ID }}"/>
    </properties>
{% for c in p.Checks %}    <testcase classname="{{ p.Name }}.{{ c.Rule }}" name="{{ c.TestCase }}">{% if not c.Passed %}
      <failure message="{{ c.Message }}" type="rate_mismatch">{{ c.Rule }} on {{ c.TestCase }} failed after {{ c.Attempts }} attempts</failure>
    {% endif %}</testcase>
{% endfor %}{% if p.Failure %}    <system-err>{{ p.Failure }}</system-err>
{% endif %}  </testsuite>
{% endfor %}</testsuites>
`
